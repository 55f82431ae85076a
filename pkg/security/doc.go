/*
Package security groups the credential handling of ccproxy.

# Client Authentication

Package auth checks the client API key on the relay path and guards the web
UI and /api control plane:

	validator := auth.NewAPIKeyValidator(func() string { return reg.Settings().APIKey })
	authn := auth.NewAuthenticator(validator, logger)
	mux.Handle("POST /api/select", authn.RequireUI(selectHandler))

The key is taken from x-api-key, Authorization: Bearer, anthropic-auth-token,
or the token/key/api_key query parameters. UI routes also accept Basic auth
with the key as password.

# Secret References

Package secrets resolves ${secret:name} references in credential fields from
environment variables and mounted secret files:

	r := secrets.NewResolver(logger,
		secrets.NewEnvSource(secrets.DefaultEnvPrefix),
		files,
	)
	token, err := r.Expand(ctx, "${secret:kimi-token}")
*/
package security
