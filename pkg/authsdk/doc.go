/*
Package authsdk is a Go client for the Cony Chips authentication service.

# SDKClient vs Session

  - SDKClient: public operations (register, login, token checks, health)
  - Session: operations made with an access token, refreshed automatically

	client := authsdk.NewSDKClient("https://auth.conychips.example")

	device, err := client.RegisterDevice(ctx, authsdk.RegisterDeviceRequest{DeviceID: "caja-01"})
	session, err := client.LoginWithDevice(ctx, email, password, device.AppToken)

	me, err := session.Me(ctx)

# Automatic Token Refresh

Every Session method first calls getValidToken, which rotates the refresh
token once the access token is within 30 seconds of expiry. Rotation
replaces both tokens; the old refresh token is revoked by the server.

# Permission Checks

Sessions check the permisos claim before calling endpoints that need a
permission and fail early with a clear error. The server checks again, so
the client side check can be turned off:

	client.CheckPermissions = false

# Errors

Failed calls return *APIError carrying the HTTP status and the server's
message. IsUnauthorized and friends test for the common cases.

# Thread Safety

Sessions are safe for concurrent use.
*/
package authsdk
