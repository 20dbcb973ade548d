// Package secret resolves credentials referenced from configuration.
//
// A config value may name its secret instead of carrying it:
//   - Whole value:  secretref:env:GITHUB_TOKEN
//   - File:         secretref:file:/run/secrets/resend_api_key
//   - Inline:       Bearer secretref:env:ADMIN_TOKEN
//
// ${VAR} references are expanded first and fail when VAR is unset, so a
// typo in a config file is caught at load time rather than on the first
// outbound call.
package secret
