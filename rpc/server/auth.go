package server

import (
	"bufio"
	"context"
	"crypto/subtle"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	mapset "github.com/deckarep/golang-set"
	"github.com/fsnotify/fsnotify"

	"github.com/anyswap/CrossChain-HTLC/log"
)

const bearerPrefix = "Bearer "

// TokenSet accepted bearer tokens, the file part can be reloaded at runtime
type TokenSet struct {
	static mapset.Set
	loaded atomic.Value // mapset.Set
}

// NewTokenSet new token set of static tokens
func NewTokenSet(tokens []string) *TokenSet {
	ts := &TokenSet{static: mapset.NewSet()}
	for _, token := range tokens {
		if token = strings.TrimSpace(token); token != "" {
			ts.static.Add(token)
		}
	}
	ts.loaded.Store(mapset.NewSet())
	return ts
}

// Len number of accepted tokens
func (ts *TokenSet) Len() int {
	return ts.static.Cardinality() + ts.loaded.Load().(mapset.Set).Cardinality()
}

// Contains is token accepted
func (ts *TokenSet) Contains(token string) bool {
	if token == "" {
		return false
	}
	// compare in constant time against every token
	found := false
	for _, set := range []mapset.Set{ts.static, ts.loaded.Load().(mapset.Set)} {
		for item := range set.Iter() {
			if subtle.ConstantTimeCompare([]byte(item.(string)), []byte(token)) == 1 {
				found = true
			}
		}
	}
	return found
}

// LoadFile replace the file tokens. Lines are tokens, '#' starts a comment.
func (ts *TokenSet) LoadFile(fileName string) error {
	file, err := os.Open(fileName)
	if err != nil {
		return err
	}
	defer file.Close()

	tokens := mapset.NewSet()
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if idx := strings.Index(line, "#"); idx >= 0 {
			line = line[:idx]
		}
		if line = strings.TrimSpace(line); line != "" {
			tokens.Add(line)
		}
	}
	if err = scanner.Err(); err != nil {
		return err
	}
	ts.loaded.Store(tokens)
	log.Info("[api] load bearer tokens file", "file", fileName, "count", tokens.Cardinality())
	return nil
}

// WatchFile reload the tokens file on change until ctx is done
func (ts *TokenSet) WatchFile(ctx context.Context, fileName string) error {
	if err := ts.LoadFile(fileName); err != nil {
		return err
	}
	watch, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// watch the dir, editors replace the file on save
	if err = watch.Add(filepath.Dir(fileName)); err != nil {
		_ = watch.Close()
		return err
	}
	go ts.startWatcher(ctx, watch, fileName)
	return nil
}

func (ts *TokenSet) startWatcher(ctx context.Context, watch *fsnotify.Watcher, fileName string) {
	log.Info("start tokens file watch", "file", fileName)
	defer func() {
		log.Info("stop tokens file watch", "file", fileName)
		_ = watch.Close()
	}()

	target := filepath.Clean(fileName)
	ops := []fsnotify.Op{
		fsnotify.Create,
		fsnotify.Write,
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-watch.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			log.Trace("fsnotify watch event", "event", ev)
			for _, op := range ops {
				if ev.Op&op == op {
					if err := ts.LoadFile(fileName); err != nil {
						log.Warn("reload tokens file failed", "file", fileName, "err", err)
					}
					break
				}
			}
		case werr, ok := <-watch.Errors:
			if !ok {
				return
			}
			log.Warn("fsnotify watch error", "err", werr)
		}
	}
}

// BearerAuth reject requests without an accepted bearer token
func BearerAuth(ts *TokenSet) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, bearerPrefix) || !ts.Contains(strings.TrimPrefix(auth, bearerPrefix)) {
				w.Header().Set("WWW-Authenticate", "Bearer")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized"}` + "\n"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
