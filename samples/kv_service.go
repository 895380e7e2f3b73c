package samples

import (
	"fmt"
	"hash/fnv"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/launchdarkly/test-engine/framework"

	"github.com/gorilla/mux"
)

// KVService is an in-memory key-value store served over HTTP.
//
//	GET    /items         newline-separated list of keys
//	GET    /items/{key}   the value, with an ETag; honors If-None-Match
//	PUT    /items/{key}   stores the request body
//	DELETE /items/{key}   removes the key
type KVService struct {
	items       map[string][]byte
	handler     http.Handler
	debugLogger framework.Logger
	lock        sync.RWMutex
}

func NewKVService(debugLogger framework.Logger) *KVService {
	if debugLogger == nil {
		debugLogger = framework.NullLogger()
	}
	s := &KVService{
		items:       make(map[string][]byte),
		debugLogger: debugLogger,
	}

	router := mux.NewRouter()
	router.HandleFunc("/items", s.serveList).Methods("GET")
	router.HandleFunc("/items/{key}", s.serveGet).Methods("GET")
	router.HandleFunc("/items/{key}", s.servePut).Methods("PUT")
	router.HandleFunc("/items/{key}", s.serveDelete).Methods("DELETE")
	s.handler = router

	return s
}

func (s *KVService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *KVService) serveList(w http.ResponseWriter, r *http.Request) {
	s.lock.RLock()
	keys := make([]string, 0, len(s.items))
	for k := range s.items {
		keys = append(keys, k)
	}
	s.lock.RUnlock()
	sort.Strings(keys)

	w.Header().Add("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, strings.Join(keys, "\n"))
}

func (s *KVService) serveGet(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	s.lock.RLock()
	value, ok := s.items[key]
	s.lock.RUnlock()
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	etag := etagOf(value)
	if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Add("Content-Type", "application/octet-stream")
	w.Header().Add("Etag", etag)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(value)
}

func (s *KVService) servePut(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	value, err := io.ReadAll(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	s.lock.Lock()
	_, existed := s.items[key]
	s.items[key] = value
	s.lock.Unlock()

	s.debugLogger.Printf("Stored %q (%d bytes)", key, len(value))
	if existed {
		w.WriteHeader(http.StatusNoContent)
	} else {
		w.WriteHeader(http.StatusCreated)
	}
}

func (s *KVService) serveDelete(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	s.lock.Lock()
	_, existed := s.items[key]
	delete(s.items, key)
	s.lock.Unlock()
	if !existed {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	s.debugLogger.Printf("Deleted %q", key)
	w.WriteHeader(http.StatusNoContent)
}

// Reset removes every item.
func (s *KVService) Reset() {
	s.lock.Lock()
	s.items = make(map[string][]byte)
	s.lock.Unlock()
}

// Len returns the number of stored items.
func (s *KVService) Len() int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return len(s.items)
}

func etagOf(value []byte) string {
	h := fnv.New64a()
	_, _ = h.Write(value)
	return fmt.Sprintf(`"%x"`, h.Sum64())
}
