// Package tokens manages the OAuth credential pair for the authenticated
// Reddit account.
//
// A Store persists the pair (plain JSON file, system keyring, or an
// AES-GCM encrypted file); the Manager guarantees a currently valid
// access token before any API call, performing the refresh exchange and
// persisting the rotated credential transparently. The engine never
// deletes a token record; only operator action does.
package tokens
