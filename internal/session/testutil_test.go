package session

import (
	"context"
	"sync"

	"github.com/princesingh-ai-dev/faceauth/internal/biometric"
	"github.com/princesingh-ai-dev/faceauth/internal/feed"
)

// fakeSlot is a SlotReader whose contents tests set directly
type fakeSlot struct {
	mu  sync.Mutex
	obs []biometric.Observation
}

func (s *fakeSlot) set(obs ...biometric.Observation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.obs = obs
}

func (s *fakeSlot) Load() feed.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return feed.Snapshot{Observations: s.obs}
}

// fakeRegistrar records every register call
type fakeRegistrar struct {
	mu        sync.Mutex
	err       error
	names     []string
	templates []biometric.Template
}

func (r *fakeRegistrar) Register(ctx context.Context, name string, template biometric.Template) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = append(r.names, name)
	r.templates = append(r.templates, template)
	return r.err
}

func (r *fakeRegistrar) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.names)
}

// fakeVerifier records every verify call
type fakeVerifier struct {
	mu          sync.Mutex
	match       biometric.Match
	err         error
	descriptors []biometric.Embedding
}

func (v *fakeVerifier) Verify(ctx context.Context, descriptor biometric.Embedding) (biometric.Match, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.descriptors = append(v.descriptors, descriptor)
	return v.match, v.err
}

// recorder collects statuses
type recorder struct {
	mu       sync.Mutex
	statuses []Status
}

func (r *recorder) Notify(s Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, s)
}

func (r *recorder) messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.statuses))
	for i, s := range r.statuses {
		out[i] = s.Message
	}
	return out
}

func (r *recorder) last() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.statuses) == 0 {
		return Status{}
	}
	return r.statuses[len(r.statuses)-1]
}

func face(seed float32) biometric.Observation {
	emb := make(biometric.Embedding, 128)
	for i := range emb {
		emb[i] = seed + float32(i)/100
	}
	return biometric.Observation{Embedding: emb}
}
