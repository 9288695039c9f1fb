package prof

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
	"sort"
	"sync"
)

// Profiling errors.
var (
	ErrCPUProfileActive = errors.New("cpu profile already active")
	ErrInvalidProfile   = errors.New("invalid profile")
)

// Profile names a runtime/pprof profile.
type Profile string

// Snapshot profiles. CPU profiling is selected with Options.CPU.
const (
	ProfileHeap         Profile = "heap"
	ProfileAllocs       Profile = "allocs"
	ProfileGoroutine    Profile = "goroutine"
	ProfileThreadCreate Profile = "threadcreate"
	ProfileBlock        Profile = "block"
	ProfileMutex        Profile = "mutex"
)

func (p Profile) String() string { return string(p) }

// Valid reports whether p names a snapshot profile.
func (p Profile) Valid() bool {
	return pprof.Lookup(string(p)) != nil
}

// Options selects what a Session records. Empty paths are skipped.
type Options struct {
	CPU       string
	Snapshots map[Profile]string
}

// Enabled reports whether o records anything.
func (o Options) Enabled() bool {
	return o.CPU != "" || len(o.Snapshots) > 0
}

var (
	cpuMu     sync.Mutex
	cpuActive bool
)

// Session is a profiling run.
type Session struct {
	opts    Options
	cpuFile *os.File
	once    sync.Once
	err     error
}

// Start validates o and begins CPU profiling if requested.
func Start(o Options) (*Session, error) {
	for p := range o.Snapshots {
		if !p.Valid() {
			return nil, fmt.Errorf("%q: %w", p, ErrInvalidProfile)
		}
	}
	if o.Snapshots[ProfileBlock] != "" {
		runtime.SetBlockProfileRate(1)
	}
	if o.Snapshots[ProfileMutex] != "" {
		runtime.SetMutexProfileFraction(1)
	}

	s := &Session{opts: o}
	if o.CPU == "" {
		return s, nil
	}

	cpuMu.Lock()
	defer cpuMu.Unlock()
	if cpuActive {
		return nil, ErrCPUProfileActive
	}
	f, err := os.Create(o.CPU)
	if err != nil {
		return nil, err
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		return nil, err
	}
	cpuActive = true
	s.cpuFile = f
	return s, nil
}

// Stop ends CPU profiling and writes the snapshot profiles. Later calls
// return the first result.
func (s *Session) Stop() error {
	s.once.Do(func() { s.err = s.stop() })
	return s.err
}

func (s *Session) stop() error {
	var errs []error
	if s.cpuFile != nil {
		pprof.StopCPUProfile()
		cpuMu.Lock()
		cpuActive = false
		cpuMu.Unlock()
		errs = append(errs, s.cpuFile.Close())
	}

	names := make([]string, 0, len(s.opts.Snapshots))
	for p := range s.opts.Snapshots {
		names = append(names, string(p))
	}
	sort.Strings(names)
	for _, name := range names {
		path := s.opts.Snapshots[Profile(name)]
		if path == "" {
			continue
		}
		if err := write(Profile(name), path); err != nil {
			errs = append(errs, fmt.Errorf("%s profile: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

func write(p Profile, path string) error {
	if p == ProfileHeap {
		runtime.GC()
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := pprof.Lookup(string(p)).WriteTo(f, 0); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
