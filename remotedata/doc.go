// Package remotedata is the uniform envelope for asynchronously fetched data.
//
// A RemoteData value is one snapshot of a fetch: RequestPending, then
// ResponsePending, then exactly one of Success or Failed. Snapshots are
// delivered through a Stream, which is cold: nothing runs until Subscribe, and
// every subscription sees the full sequence from the start.
//
//	for rd := range svc.FindByHref(href).Subscribe(ctx) {
//	    if item, ok := rd.Payload(); ok {
//	        ...
//	    }
//	}
package remotedata
