// Package fingerprint derives content identities for source videos.
//
// A fingerprint is the SHA-256 digest of every byte of the file, computed by
// streaming so memory stays bounded for large inputs. It serves as the cache
// key for remote audio and transcripts and is never used for security
// decisions. Renamed copies of the same bytes share a fingerprint.
package fingerprint
