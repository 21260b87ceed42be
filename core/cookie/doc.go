// Package cookie provides HTTP cookie management with HMAC-SHA256 signing
// and AES-256-GCM encryption.
//
// The authentication gate uses both protection levels: the session token
// travels encrypted (confidential and tamper-proof), while the post-login
// return path travels signed-only (visible to the client but tamper-proof).
//
// Secrets must be at least 32 characters. Passing several secrets enables
// zero-downtime key rotation: the first secret produces new cookies and
// every secret is tried when reading.
//
//	mgr, err := cookie.New([]string{os.Getenv("COOKIE_SECRET")})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	err = mgr.SetEncrypted(w, "__session_token", token,
//		cookie.WithHTTPOnly(true),
//		cookie.WithSecure(true),
//	)
//
//	token, err := mgr.GetEncrypted(r, "__session_token")
package cookie
