// Package remote talks to the authoritative library server.
//
// # Queries
//
// [Client] performs REST calls under {base}/v1. Collections are fetched with
// GET /v1/{model}?deleted=false and decoded into the concrete model type.
//
// # Change Streams
//
// [Source] implements [replica.Source] for one collection. Subscribe opens a WebSocket at
// /v1/{model}/changes?since={ms} and forwards every {"changes":[...]} frame as one batch.
// A dropped connection is redialled, paced by a [rate.Limiter], resuming from the highest
// updatedAt delivered so far. Redelivery of the boundary item is harmless because equal
// timestamps are applied idempotently.
//
// # Authentication
//
// A configured token is sent as a bearer token through an [oauth2.StaticTokenSource] for
// both REST calls and the WebSocket handshake.
package remote
