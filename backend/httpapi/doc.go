// Package httpapi implements an upload control plane client for services that
// hand out presigned part URLs over a small JSON API:
//
//	POST   {base}/v1/uploads                       start an upload
//	POST   {base}/v1/uploads/{upload_id}/complete  complete it
//	DELETE {base}/v1/uploads/{upload_id}?id={id}   abort it
//
// Requests carry an optional bearer token. Error responses are JSON objects
// with an "error" field.
package httpapi
