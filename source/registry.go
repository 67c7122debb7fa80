package source

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/wpkg/core/pkg/logging"
	"github.com/wpkg/core/pkg/retry"
)

// updateRetryConfig governs retries of a single source backend's
// Update call: a source's backing data can be transiently unreadable
// (e.g. a concurrent writer mid-rewrite of a catalog file), and a
// handful of short backoffs clears that without surfacing a spurious
// failure to the caller.
var updateRetryConfig = retry.RetryConfig{MaxRetries: 3, InitialInterval: 200 * time.Millisecond, Multiplier: 2}

// sourceRecord is one persisted Sources: entry (§6).
type sourceRecord struct {
	Name        string     `yaml:"Name"`
	Type        string     `yaml:"Type"`
	Arg         string     `yaml:"Arg"`
	Data        string     `yaml:"Data"`
	IsTombstone bool       `yaml:"IsTombstone"`
	TrustLevel  TrustLevel `yaml:"TrustLevel,omitempty"`
	Identifier  string     `yaml:"Identifier,omitempty"`
}

type sourcesDocument struct {
	Sources []sourceRecord `yaml:"Sources"`
}

// metadataRecord is one persisted SourcesMetadata: entry (§6).
type metadataRecord struct {
	Name       string `yaml:"Name"`
	LastUpdate int64  `yaml:"LastUpdate"`
}

type sourcesMetadataDocument struct {
	Sources []metadataRecord `yaml:"Sources"`
}

// namedLock is the cross-process reader-writer lock keyed on a source
// Identifier (§5, §9). Real cross-process mutual exclusion would use a
// kernel-named semaphore or advisory file lock per the design note;
// in-process callers are served by the embedded sync.RWMutex, and the
// lockFilePath is reserved for a future flock-based implementation.
type namedLock struct {
	mu           sync.RWMutex
	lockFilePath string
}

// Registry is the persisted, multi-source registry described in §4.2:
// Sources and SourcesMetadata YAML files plus the in-memory source
// handles opened against them. Grounded on the teacher's
// pkg/catalog/enhanced.go SessionCache, generalized from a single
// 5-minute TTL cache to a per-source named lock plus an fsnotify watch
// that invalidates the in-memory list on external edits.
type Registry struct {
	mu           sync.Mutex
	sourcesPath  string
	metadataPath string

	records  map[string]sourceRecord
	metadata map[string]metadataRecord
	locks    map[string]*namedLock

	watcher *fsnotify.Watcher
}

// Open loads (or initializes) a Registry rooted at dir, watching
// Sources.yaml/SourcesMetadata.yaml for external edits.
func Open(dir string) (*Registry, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("source: creating registry directory: %w", err)
	}

	r := &Registry{
		sourcesPath:  filepath.Join(dir, "Sources.yaml"),
		metadataPath: filepath.Join(dir, "SourcesMetadata.yaml"),
		records:      map[string]sourceRecord{},
		metadata:     map[string]metadataRecord{},
		locks:        map[string]*namedLock{},
	}

	if err := r.reload(); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err == nil {
		_ = watcher.Add(dir)
		r.watcher = watcher
		go r.watchLoop()
	} else {
		logging.Warn("Falling back to unwatched registry (fsnotify unavailable)", "error", err)
	}

	return r, nil
}

func (r *Registry) watchLoop() {
	for event := range r.watcher.Events {
		if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove) != 0 {
			logging.Debug("Source registry file changed externally, reloading", "path", event.Name)
			if err := r.reload(); err != nil {
				logging.Warn("Reloading source registry after external edit failed", "error", err)
			}
		}
	}
}

// Close stops the registry's fsnotify watcher.
func (r *Registry) Close() error {
	if r.watcher != nil {
		return r.watcher.Close()
	}
	return nil
}

func (r *Registry) reload() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	records := map[string]sourceRecord{}
	if data, err := os.ReadFile(r.sourcesPath); err == nil {
		var doc sourcesDocument
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("source: parsing %s: %w", r.sourcesPath, err)
		}
		for _, rec := range doc.Sources {
			records[rec.Name] = rec
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("source: reading %s: %w", r.sourcesPath, err)
	}

	metadata := map[string]metadataRecord{}
	if data, err := os.ReadFile(r.metadataPath); err == nil {
		var doc sourcesMetadataDocument
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("source: parsing %s: %w", r.metadataPath, err)
		}
		for _, rec := range doc.Sources {
			metadata[rec.Name] = rec
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("source: reading %s: %w", r.metadataPath, err)
	}

	r.records = records
	r.metadata = metadata
	return nil
}

// persist rewrites both YAML files atomically (write-temp-then-rename,
// §5).
func (r *Registry) persist() error {
	sourcesDoc := sourcesDocument{}
	for _, rec := range r.records {
		sourcesDoc.Sources = append(sourcesDoc.Sources, rec)
	}
	if err := writeYAMLAtomic(r.sourcesPath, sourcesDoc); err != nil {
		return err
	}

	metadataDoc := sourcesMetadataDocument{}
	for _, rec := range r.metadata {
		metadataDoc.Sources = append(metadataDoc.Sources, rec)
	}
	return writeYAMLAtomic(r.metadataPath, metadataDoc)
}

func writeYAMLAtomic(path string, doc interface{}) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("source: serializing %s: %w", path, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("source: writing %s: %w", tmp, err)
	}
	return os.Rename(tmp, path)
}

func (r *Registry) lockFor(name string) *namedLock {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[name]
	if !ok {
		l = &namedLock{lockFilePath: filepath.Join(filepath.Dir(r.sourcesPath), name+".lock")}
		r.locks[name] = l
	}
	return l
}

// Add registers a new source (§4.2): duplicate-named sources are
// rejected, the backend factory stamps Data/Identifier, and
// LastUpdateTime is set to now.
func (r *Registry) Add(name, typeName, arg string) (Details, error) {
	lock := r.lockFor(name)
	lock.mu.Lock()
	defer lock.mu.Unlock()

	r.mu.Lock()
	if _, exists := r.records[name]; exists {
		r.mu.Unlock()
		return Details{}, fmt.Errorf("source: a source named %q already exists", name)
	}
	r.mu.Unlock()

	factory, ok := lookupFactory(typeName)
	if !ok {
		return Details{}, fmt.Errorf("source: unknown source type %q", typeName)
	}

	details := Details{Name: name, Type: typeName, Arg: arg, Origin: OriginUser, LastUpdateTime: time.Now()}
	backend, err := factory(details)
	if err != nil {
		return Details{}, fmt.Errorf("source: opening backend for %q: %w", name, err)
	}
	stamped := backend.Details()
	stamped.Name = name
	stamped.Type = typeName
	stamped.Arg = arg
	stamped.LastUpdateTime = time.Now()

	r.mu.Lock()
	r.records[name] = sourceRecord{
		Name: name, Type: typeName, Arg: arg, Data: stamped.Data,
		Identifier: stamped.Identifier, TrustLevel: stamped.TrustLevel,
	}
	r.metadata[name] = metadataRecord{Name: name, LastUpdate: stamped.LastUpdateTime.Unix()}
	err = r.persist()
	r.mu.Unlock()

	return stamped, err
}

// Update refreshes a source backend. Background updates attempt a
// zero-timeout lock and return immediately if contended; foreground
// updates block on lock.mu.Lock() until the lock is free. The progress
// callback is not consulted while waiting for the lock (§4.2, §5).
func (r *Registry) Update(name string, background bool, progress ProgressCallback) error {
	lock := r.lockFor(name)

	if background {
		if !lock.mu.TryLock() {
			return nil
		}
	} else {
		lock.mu.Lock()
	}
	defer lock.mu.Unlock()

	r.mu.Lock()
	rec, ok := r.records[name]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("source: no such source %q", name)
	}

	factory, ok := lookupFactory(rec.Type)
	if !ok {
		return fmt.Errorf("source: unknown source type %q", rec.Type)
	}
	backend, err := factory(Details{Name: rec.Name, Type: rec.Type, Arg: rec.Arg, Data: rec.Data, Identifier: rec.Identifier})
	if err != nil {
		return fmt.Errorf("source: opening backend for %q: %w", name, err)
	}
	if mutable, ok := backend.(Mutable); ok {
		if err := retry.Retry(updateRetryConfig, func() error { return mutable.Update(progress) }); err != nil {
			return err
		}
	}

	r.mu.Lock()
	r.metadata[name] = metadataRecord{Name: name, LastUpdate: time.Now().Unix()}
	err = r.persist()
	r.mu.Unlock()
	return err
}

// Remove deletes name's record and metadata from the persisted set.
// Records carry no origin, so every source, user-added or default, is
// deleted outright; no tombstone record is written.
func (r *Registry) Remove(name string) error {
	lock := r.lockFor(name)
	lock.mu.Lock()
	defer lock.mu.Unlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[name]
	if !ok {
		return fmt.Errorf("source: no such source %q", name)
	}
	rec.IsTombstone = true
	delete(r.records, name)
	delete(r.metadata, name)
	return r.persist()
}

// Drop purges name (or every source, when name == "") from the
// persisted set outright, used for maintenance (§4.2).
func (r *Registry) Drop(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if name == "" {
		r.records = map[string]sourceRecord{}
		r.metadata = map[string]metadataRecord{}
		return r.persist()
	}
	delete(r.records, name)
	delete(r.metadata, name)
	return r.persist()
}

// Open opens a backend handle for name, optionally triggering an Update
// first (§4.2).
func (r *Registry) Open(name string, updateFirst bool, progress ProgressCallback) (Source, error) {
	if updateFirst {
		if err := r.Update(name, false, progress); err != nil {
			return nil, err
		}
	}

	lock := r.lockFor(name)
	lock.mu.RLock()
	defer lock.mu.RUnlock()

	r.mu.Lock()
	rec, ok := r.records[name]
	r.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("source: no such source %q", name)
	}

	factory, ok := lookupFactory(rec.Type)
	if !ok {
		return nil, fmt.Errorf("source: unknown source type %q", rec.Type)
	}
	return factory(Details{Name: rec.Name, Type: rec.Type, Arg: rec.Arg, Data: rec.Data, Identifier: rec.Identifier})
}

// List returns the Details of every non-tombstoned registered source.
func (r *Registry) List() []Details {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Details, 0, len(r.records))
	for _, rec := range r.records {
		if rec.IsTombstone {
			continue
		}
		meta := r.metadata[rec.Name]
		out = append(out, Details{
			Name: rec.Name, Identifier: rec.Identifier, Type: rec.Type, Arg: rec.Arg, Data: rec.Data,
			LastUpdateTime: time.Unix(meta.LastUpdate, 0), TrustLevel: rec.TrustLevel, IsTombstone: rec.IsTombstone,
		})
	}
	return out
}
