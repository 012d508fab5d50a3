// Package objectcache keeps extracted audio and recognition transcripts in
// remote object storage, keyed by content fingerprint.
//
// Object names are derived only from the fingerprint, so renamed copies of a
// video reuse the same entries. Uploads skip work when the object already
// exists and treat a concurrent creation by another run as success. The
// storage service itself sits behind the Backend interface; the oss
// subpackage provides the Alibaba Cloud implementation.
package objectcache
