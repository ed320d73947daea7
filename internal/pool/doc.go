// Package pool provides reusable copy buffers.
//
// Hashing streams every part through a fixed-size buffer instead of
// materialising the part, so buffers are pooled by tier and shared across
// concurrent uploads.
package pool
