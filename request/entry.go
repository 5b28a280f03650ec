package request

import (
	"time"

	"github.com/kbukum/hyperdata/httpclient"
	"github.com/kbukum/hyperdata/remotedata"
)

// Entry is one snapshot of a tracked request.
type Entry struct {
	// ID identifies the tracked request; every snapshot of one request
	// shares it.
	ID    string
	Key   Key
	State remotedata.State
	// Response is set on Success, and on Failed when the server answered.
	Response *httpclient.Response
	Err      *remotedata.ErrorInfo
	// LastUpdated is when the snapshot was produced, or when the cached
	// representation was stored.
	LastUpdated time.Time
	// Stale marks a Success served from a stale cache entry.
	Stale bool
}

// RemoteData converts the entry into the response envelope.
func (e Entry) RemoteData() remotedata.RemoteData[*httpclient.Response] {
	switch e.State {
	case remotedata.StateSuccess:
		rd := remotedata.Success(e.Response).WithTimeCompleted(e.LastUpdated)
		if e.Stale {
			rd = rd.WithStale()
		}
		return rd
	case remotedata.StateFailed:
		info := remotedata.ErrorInfo{StatusCode: 500, Message: "request failed"}
		if e.Err != nil {
			info = *e.Err
		}
		return remotedata.Failed[*httpclient.Response](info).WithTimeCompleted(e.LastUpdated)
	case remotedata.StateResponsePending:
		return remotedata.ResponsePending[*httpclient.Response]()
	default:
		return remotedata.RequestPending[*httpclient.Response]()
	}
}

// Responses maps a tracker stream onto response envelopes.
func Responses(s remotedata.Stream[Entry]) remotedata.Stream[remotedata.RemoteData[*httpclient.Response]] {
	return remotedata.Map(s, Entry.RemoteData)
}
