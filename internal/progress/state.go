package progress

import "sync"

// DownloadProgressState tracks one download invocation: the expected file
// count (grows as folders are expanded), how many units settled, and live
// byte counts for in-flight transfers. It implements Observer so it can sit
// alongside a UI in a MultiObserver.
type DownloadProgressState struct {
	mu        sync.Mutex
	total     int
	completed int
	failed    int
	inFlight  map[string]int64 // fileID -> bytes downloaded so far
}

func NewDownloadProgressState() *DownloadProgressState {
	return &DownloadProgressState{
		inFlight: make(map[string]int64),
	}
}

func (s *DownloadProgressState) OnUnitStarted(fileID, name, localPath string, size int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight[fileID] = 0
}

func (s *DownloadProgressState) OnUnitProgress(fileID string, bytes int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.inFlight[fileID]; !ok || bytes > prev {
		s.inFlight[fileID] = bytes
	}
}

func (s *DownloadProgressState) OnUnitFinished(fileID string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, fileID)
	if err != nil {
		s.failed++
	} else {
		s.completed++
	}
}

func (s *DownloadProgressState) OnTotalCountChanged(total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if total > s.total {
		s.total = total
	}
}

// Total returns the expected file count known so far.
func (s *DownloadProgressState) Total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

// Completed returns the number of units finished successfully.
func (s *DownloadProgressState) Completed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completed
}

// Failed returns the number of units that ended with an error.
func (s *DownloadProgressState) Failed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failed
}

// InFlight returns a snapshot of current per-file byte counts.
func (s *DownloadProgressState) InFlight() map[string]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int64, len(s.inFlight))
	for id, n := range s.inFlight {
		out[id] = n
	}
	return out
}
