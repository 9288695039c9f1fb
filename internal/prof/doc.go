// Package prof profiles a CLI run with runtime/pprof.
//
// A Session starts CPU profiling when created and writes the snapshot
// profiles it was asked for when stopped:
//
//	s, err := prof.Start(prof.Options{CPU: "cpu.prof", Snapshots: map[prof.Profile]string{
//		prof.ProfileHeap: "heap.prof",
//	}})
//	if err != nil {
//		return err
//	}
//	defer s.Stop()
//
// Only one CPU profile can run per process; a second Start with a CPU path
// fails with ErrCPUProfileActive until the first session stops.
package prof
