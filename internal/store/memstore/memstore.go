// Package memstore emulates the REST surface of the posts document store in
// memory. It backs the tests and the emulate command.
package memstore

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

const maxBody = 1 << 20

// Store is an in-memory keyed collection of JSON documents.
type Store struct {
	mu       sync.Mutex
	resource string
	docs     map[string]json.RawMessage
	keys     *keyGen
	faults   map[string][]int
	log      logrus.FieldLogger
}

// New returns an empty Store serving the given collection name.
// A nil logger discards request logs.
func New(resource string, log logrus.FieldLogger) *Store {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Store{
		resource: resource,
		docs:     make(map[string]json.RawMessage),
		keys:     newKeyGen(time.Now, time.Now().UnixNano()),
		faults:   make(map[string][]int),
		log:      log.WithField("component", "memstore"),
	}
}

// Handler returns the HTTP surface of the store.
func (s *Store) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Use(s.injectFaults)

	r.Get("/"+s.resource+".json", s.list)
	r.Post("/"+s.resource+".json", s.create)
	r.Put("/"+s.resource+"/{id}.json", s.put)
	r.Delete("/"+s.resource+"/{id}.json", s.remove)
	return r
}

// Put stores a raw document under id, bypassing HTTP. Used to seed data.
func (s *Store) Put(id string, doc json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[id] = doc
}

// Add stores a raw document under a freshly generated key and returns it.
func (s *Store) Add(doc json.RawMessage) string {
	key := s.keys.next()
	s.Put(key, doc)
	return key
}

// Get returns the raw document stored under id.
func (s *Store) Get(id string) (json.RawMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	return doc, ok
}

// Len returns the number of stored documents.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.docs)
}

// FailNext makes the next request with the given method answer status.
// Calls queue up.
func (s *Store) FailNext(method string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[method] = append(s.faults[method], status)
}

func (s *Store) list(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.docs) == 0 {
		writeRaw(w, http.StatusOK, []byte("null"))
		return
	}
	// encoding/json writes map keys sorted, which is push-key order.
	b, err := json.Marshal(s.docs)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeRaw(w, http.StatusOK, b)
}

func (s *Store) create(w http.ResponseWriter, r *http.Request) {
	doc, ok := readDocument(w, r)
	if !ok {
		return
	}
	key := s.keys.next()

	s.mu.Lock()
	s.docs[key] = doc
	s.mu.Unlock()

	b, _ := json.Marshal(map[string]string{"name": key})
	writeRaw(w, http.StatusOK, b)
}

func (s *Store) put(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(w, r)
	if !ok {
		return
	}
	doc, ok := readDocument(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	if string(doc) == "null" {
		delete(s.docs, id)
	} else {
		s.docs[id] = doc
	}
	s.mu.Unlock()

	writeRaw(w, http.StatusOK, doc)
}

func (s *Store) remove(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	delete(s.docs, id)
	s.mu.Unlock()

	writeRaw(w, http.StatusOK, []byte("null"))
}

func (s *Store) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   ww.Status(),
			"duration": time.Since(start),
		}).Debug("request")
	})
}

func (s *Store) injectFaults(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		var status int
		if q := s.faults[r.Method]; len(q) > 0 {
			status, s.faults[r.Method] = q[0], q[1:]
		}
		s.mu.Unlock()

		if status != 0 {
			writeError(w, status, "injected failure")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func recordID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, err := url.PathUnescape(chi.URLParam(r, "id"))
	if err != nil || id == "" {
		writeError(w, http.StatusBadRequest, "Invalid path: Invalid token in path")
		return "", false
	}
	return id, true
}

func readDocument(w http.ResponseWriter, r *http.Request) (json.RawMessage, bool) {
	b, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	if !json.Valid(b) {
		writeError(w, http.StatusBadRequest, "Invalid data; couldn't parse JSON object, array, or value.")
		return nil, false
	}
	return json.RawMessage(b), true
}

func writeRaw(w http.ResponseWriter, status int, b []byte) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(b)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	b, _ := json.Marshal(map[string]string{"error": msg})
	writeRaw(w, status, b)
}
