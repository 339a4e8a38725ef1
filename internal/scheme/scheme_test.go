package scheme

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alanyoungcy/triarb/internal/domain"
)

func sampleSchemes() []domain.Scheme {
	return []domain.Scheme{
		{domain.NewPair("BTC", "USDT"), domain.NewPair("USDT", "ETH"), domain.NewPair("ETH", "BTC")},
		{domain.NewPair("ETH", "BTC"), domain.NewPair("BTC", "USDT"), domain.NewPair("USDT", "ETH")},
	}
}

func TestEncodeShape(t *testing.T) {
	data, err := Encode(sampleSchemes()[:1])
	if err != nil {
		t.Fatal(err)
	}
	want := `[[{"BaseCoin":{"Name":"BTC"},"QuoteCoin":{"Name":"USDT"}},` +
		`{"BaseCoin":{"Name":"USDT"},"QuoteCoin":{"Name":"ETH"}},` +
		`{"BaseCoin":{"Name":"ETH"},"QuoteCoin":{"Name":"BTC"}}]]`
	if string(data) != want {
		t.Errorf("Encode =\n%s\nwant\n%s", data, want)
	}

	empty, err := Encode(nil)
	if err != nil {
		t.Fatal(err)
	}
	if string(empty) != "[]" {
		t.Errorf("Encode(nil) = %s, want []", empty)
	}
}

func TestDecodeAcceptsExtraFields(t *testing.T) {
	doc := `[[{"BaseCoin":{"Name":"btc","Id":1},"QuoteCoin":{"Name":"USDT"}},
	{"BaseCoin":{"Name":"USDT"},"QuoteCoin":{"Name":"ETH"}},
	{"BaseCoin":{"Name":"ETH"},"QuoteCoin":{"Name":"BTC"}}]]`
	got, err := Decode([]byte(doc))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !reflect.DeepEqual(got, sampleSchemes()[:1]) {
		t.Errorf("Decode = %v", got)
	}
}

func TestDecodeInvalid(t *testing.T) {
	tests := map[string]string{
		"not json":    `{{`,
		"object":      `{"a":1}`,
		"two legs":    `[[{"BaseCoin":{"Name":"A"},"QuoteCoin":{"Name":"B"}},{"BaseCoin":{"Name":"B"},"QuoteCoin":{"Name":"A"}}]]`,
		"empty coin":  `[[{"BaseCoin":{"Name":""},"QuoteCoin":{"Name":"B"}},{"BaseCoin":{"Name":"B"},"QuoteCoin":{"Name":"C"}},{"BaseCoin":{"Name":"C"},"QuoteCoin":{"Name":""}}]]`,
		"not a cycle": `[[{"BaseCoin":{"Name":"A"},"QuoteCoin":{"Name":"B"}},{"BaseCoin":{"Name":"C"},"QuoteCoin":{"Name":"D"}},{"BaseCoin":{"Name":"D"},"QuoteCoin":{"Name":"A"}}]]`,
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Decode([]byte(doc)); !errors.Is(err, domain.ErrInvalidScheme) {
				t.Fatalf("err = %v, want ErrInvalidScheme", err)
			}
		})
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "triangular.json")
	s := NewFileStore(path)
	ctx := context.Background()

	if _, err := s.Load(ctx); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Load on missing file err = %v, want ErrNotFound", err)
	}
	if err := s.Save(ctx, sampleSchemes()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(got, sampleSchemes()) {
		t.Errorf("Load = %v", got)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %v", entries)
	}
}

func TestFileStoreCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "triangular.json")
	if err := os.WriteFile(path, []byte("[[1,2,3]]"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFileStore(path).Load(context.Background()); !errors.Is(err, domain.ErrInvalidScheme) {
		t.Fatalf("err = %v, want ErrInvalidScheme", err)
	}
}

type memBlob struct {
	mu        sync.Mutex
	objects   map[string][]byte
	multipart int
}

func newMemBlob() *memBlob { return &memBlob{objects: make(map[string][]byte)} }

func (m *memBlob) Put(ctx context.Context, path string, data io.Reader, contentType string) error {
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[path] = b
	return nil
}

func (m *memBlob) PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64) error {
	m.mu.Lock()
	m.multipart++
	m.mu.Unlock()
	return m.Put(ctx, path, data, "")
}

func (m *memBlob) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.objects[path]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (m *memBlob) List(ctx context.Context, prefix string) ([]domain.BlobInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.BlobInfo
	for k, v := range m.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, domain.BlobInfo{Path: k, Size: int64(len(v))})
		}
	}
	return out, nil
}

func (m *memBlob) Exists(ctx context.Context, path string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[path]
	return ok, nil
}

func TestBlobStoreRoundTrip(t *testing.T) {
	blob := newMemBlob()
	s := NewBlobStore(blob, blob, "schemes/poloniex.json")
	ctx := context.Background()

	if _, err := s.Load(ctx); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Load missing err = %v", err)
	}
	if err := s.Save(ctx, sampleSchemes()); err != nil {
		t.Fatal(err)
	}
	got, err := s.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, sampleSchemes()) {
		t.Errorf("Load = %v", got)
	}
	if blob.multipart != 0 {
		t.Errorf("small document used multipart")
	}
}

type fakeLocks struct {
	held     map[string]bool
	acquired int
	released int
}

func (f *fakeLocks) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	if f.held[key] {
		return nil, domain.ErrLockHeld
	}
	f.held[key] = true
	f.acquired++
	return func() {
		f.held[key] = false
		f.released++
	}, nil
}

func TestLockedStore(t *testing.T) {
	locks := &fakeLocks{held: make(map[string]bool)}
	inner := NewFileStore(filepath.Join(t.TempDir(), "s.json"))
	key := LockKey(domain.ExchangeBinance)
	s := NewLockedStore(inner, locks, key, time.Second)
	ctx := context.Background()

	if key != "scheme:binance" {
		t.Errorf("LockKey = %q", key)
	}
	if err := s.Save(ctx, sampleSchemes()); err != nil {
		t.Fatal(err)
	}
	if locks.acquired != 1 || locks.released != 1 {
		t.Errorf("acquired = %d released = %d", locks.acquired, locks.released)
	}

	locks.held[key] = true
	if err := s.Save(ctx, sampleSchemes()); !errors.Is(err, domain.ErrLockHeld) {
		t.Fatalf("err = %v, want ErrLockHeld", err)
	}
	if got, err := s.Load(ctx); err != nil || len(got) != 2 {
		t.Fatalf("Load = %v, %v", got, err)
	}
}
