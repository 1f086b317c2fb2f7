package proxy

import (
	"github.com/dendrascience/syncfs/store"
	"github.com/google/uuid"
)

// Every call crosses the channel as one request carrying its own reply
// channel. Byte payloads are copied on both sides of the boundary.

type request interface {
	id() uuid.UUID
	serve(w *worker)
}

type header struct {
	ID uuid.UUID
}

func (h header) id() uuid.UUID { return h.ID }

type loadRequest struct {
	header
	Key   store.Key
	reply chan loadResponse
}

type loadResponse struct {
	Data  []byte
	Found bool
	Err   error
}

type saveRequest struct {
	header
	Key   store.Key
	Data  []byte
	reply chan errResponse
}

type removeRequest struct {
	header
	Key   store.Key
	reply chan errResponse
}

type loadRangeRequest struct {
	header
	Prefix store.Key
	reply  chan loadRangeResponse
}

type loadRangeResponse struct {
	Chunks []store.Chunk
	Err    error
}

type removeRangeRequest struct {
	header
	Prefix store.Key
	reply  chan errResponse
}

type rootsRequest struct {
	header
	reply chan rootsResponse
}

type rootsResponse struct {
	Roots []string
	Err   error
}

type listRequest struct {
	header
	Prefix store.Key
	reply  chan listResponse
}

type listResponse struct {
	Entries []store.Entry
	Err     error
}

type statsRequest struct {
	header
	reply chan store.Stats
}

type errResponse struct {
	Err error
}

func newHeader() header {
	return header{ID: uuid.New()}
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func cloneKey(k store.Key) store.Key {
	if k == nil {
		return nil
	}
	out := make(store.Key, len(k))
	copy(out, k)
	return out
}

func cloneChunks(chunks []store.Chunk) []store.Chunk {
	out := make([]store.Chunk, len(chunks))
	for i, c := range chunks {
		out[i] = store.Chunk{Key: cloneKey(c.Key), Data: cloneBytes(c.Data)}
	}
	return out
}
