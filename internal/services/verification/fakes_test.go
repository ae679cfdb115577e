package verification

import (
	"context"
	"errors"
	"sync"

	"aigyoo-backend/internal/queue"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

type fakeBlobs struct {
	mu   sync.Mutex
	puts []string
	err  error
}

func (f *fakeBlobs) Put(_ context.Context, key, _ string, _ []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts = append(f.puts, key)
	if f.err != nil {
		return "", f.err
	}
	return "https://cdn.example.com/" + key, nil
}

func (f *fakeBlobs) DeletePrefix(context.Context, string) (int, error) { return 0, nil }

type fakeQueue struct {
	reqs []queue.ReviewRequest
	err  error
}

func (f *fakeQueue) EnqueueReview(_ context.Context, req queue.ReviewRequest) error {
	f.reqs = append(f.reqs, req)
	return f.err
}

type push struct {
	token, title string
}

type fakeNotifier struct {
	sent []push
}

func (f *fakeNotifier) Send(_ context.Context, token, title, _ string, _ map[string]string) error {
	f.sent = append(f.sent, push{token: token, title: title})
	return nil
}

var errBlobDown = errors.New("blob store down")
