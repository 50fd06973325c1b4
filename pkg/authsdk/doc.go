/*
Package authsdk is the client side of the EcoWise auth service, and the
home of the request/response schemas and validation rules the server
shares with it.

# Gateway and Session Cache

An SDKClient is the single request gateway. It attaches the cached bearer
token to every request and reports every outcome to a SessionCache:

	cache := authsdk.NewSessionCache(authsdk.NewFileStorage(path))
	client := authsdk.NewSDKClient("https://eco.example.com", cache,
		authsdk.WithOnUnauthorized(showLogin),
	)

	// Restore the stored session and confirm it with the server.
	st, err := client.Hydrate(ctx)

	res := client.Login(ctx, authsdk.LoginRequest{Email: email, Password: pw})
	if !res.Success {
		for _, fe := range res.Errors {
			fmt.Printf("%s: %s\n", fe.Path, fe.Msg)
		}
	}

Operations never return Go errors. They return a Result carrying either
the data or the server's message and field errors.

# Session states

SessionCache is a thin shell around the pure Reduce function:

	Anonymous --login/register--> Authenticating --ok--> Authenticated
	                                             --fail--> AuthError
	Authenticated --logout or any 401--> Anonymous

A 401 from any endpoint ends the session, purges storage and runs the
OnUnauthorized hook. Concurrent 401s collapse into one logout. Logout is
local first: storage is cleared even when the server cannot be reached.

# Storage

Storage keeps the token and user entries, always written and removed
together. MemoryStorage, FileStorage and RedisStorage are provided.

# Validation

RegisterRequest, LoginRequest, UpdateProfileRequest and
ChangePasswordRequest each have a Validate method returning every violated
field with one message per field. The SDK runs them before sending when
ValidateBeforeSend is set; the server always runs them.
*/
package authsdk
