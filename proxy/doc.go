// Package proxy runs a store.Store in a worker goroutine and forwards every
// operation to it over a channel.
//
// Each call becomes one typed request (tagged with a uuid for log
// correlation) and one typed response. The worker owns the Store and all of
// its caches; the Proxy only holds the channels. Byte payloads are copied on
// the way in and on the way out so the two sides never share memory.
//
// The Store is constructed asynchronously by New; the first call of any
// operation waits for it. Errors from the Store are returned unchanged.
// After Close every call fails with ErrChannelClosed. Nothing is retried.
package proxy
