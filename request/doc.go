// Package request tracks in-flight requests so that every caller asking for
// the same key shares one transport call and sees the same snapshot sequence.
//
// Track is the getOrCreate operation. For a key it either joins the request
// already in flight, serves a fresh object-cache entry, serves a stale entry
// while revalidating it, or dispatches a new request. Late subscribers get
// the full history replayed. The transport runs under a context owned by the
// tracker and is cancelled only when the last subscriber leaves while the
// request is still pending.
//
// Successful GET responses are written to the object cache; embedded
// resources that carry a self link get entries of their own.
package request
