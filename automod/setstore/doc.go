// Moderation component for static sets of strings: keyword lists, safe and malicious domain lists.
//
// Sets are loaded from JSON files at startup (see `LoadFromFileJSON`) or added to programmatically.
package setstore
