package testutil

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
)

// ReceivedPart is a part PUT observed by a PartServer.
type ReceivedPart struct {
	Object     string
	PartNumber int32
	Header     http.Header
	Body       []byte
	ETag       string
}

// PartServer is an httptest server that accepts presigned part PUTs at
// /{object}?partNumber=N and answers with an S3-style quoted ETag.
type PartServer struct {
	*httptest.Server

	// Respond, when set, picks a status code for attempt n (1-based) of a part.
	// Returning 0 or 200 accepts the part.
	Respond func(partNumber int32, attempt int) int

	// OmitETag drops the ETag header from successful responses.
	OmitETag bool

	// Before, when set, runs before the response is written.
	Before func(partNumber int32)

	mu       sync.Mutex
	attempts map[int32]int
	parts    map[int32]ReceivedPart
}

// NewPartServer starts a PartServer that is closed when the test ends.
func NewPartServer(t *testing.T) *PartServer {
	t.Helper()

	ps := &PartServer{
		attempts: make(map[int32]int),
		parts:    make(map[int32]ReceivedPart),
	}

	r := chi.NewRouter()
	r.Put("/{object}", ps.handlePut)
	ps.Server = httptest.NewServer(r)
	t.Cleanup(ps.Close)
	return ps
}

// PartURL returns the URL a part of object should be PUT to.
func (ps *PartServer) PartURL(object string, partNumber int32) string {
	return fmt.Sprintf("%s/%s?partNumber=%d&uploadId=test-upload-id", ps.URL, object, partNumber)
}

func (ps *PartServer) handlePut(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.ParseInt(r.URL.Query().Get("partNumber"), 10, 32)
	if err != nil {
		http.Error(w, "bad part number", http.StatusBadRequest)
		return
	}
	partNumber := int32(n)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	ps.mu.Lock()
	ps.attempts[partNumber]++
	attempt := ps.attempts[partNumber]
	ps.mu.Unlock()

	if ps.Before != nil {
		ps.Before(partNumber)
	}

	if ps.Respond != nil {
		if code := ps.Respond(partNumber, attempt); code != 0 && code != http.StatusOK {
			w.WriteHeader(code)
			_, _ = fmt.Fprintf(w, "<Error><Code>Injected</Code><PartNumber>%d</PartNumber></Error>", partNumber)
			return
		}
	}

	sum := md5.Sum(body)
	etag := hex.EncodeToString(sum[:])

	ps.mu.Lock()
	ps.parts[partNumber] = ReceivedPart{
		Object:     chi.URLParam(r, "object"),
		PartNumber: partNumber,
		Header:     r.Header.Clone(),
		Body:       body,
		ETag:       etag,
	}
	ps.mu.Unlock()

	if !ps.OmitETag {
		w.Header().Set("ETag", strconv.Quote(etag))
	}
	w.WriteHeader(http.StatusOK)
}

// Parts returns the accepted parts ordered by part number.
func (ps *PartServer) Parts() []ReceivedPart {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	out := make([]ReceivedPart, 0, len(ps.parts))
	for _, p := range ps.parts {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PartNumber < out[j].PartNumber })
	return out
}

// Attempts returns the number of PUTs received for a part.
func (ps *PartServer) Attempts(partNumber int32) int {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return ps.attempts[partNumber]
}

// TotalAttempts returns the number of PUTs received for all parts.
func (ps *PartServer) TotalAttempts() int {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	total := 0
	for _, n := range ps.attempts {
		total += n
	}
	return total
}
