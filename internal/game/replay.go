package game

import (
	"compress/gzip"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReplayFormatVersion is stamped on every stored replay log.
const ReplayFormatVersion = 1

// ErrReplayNotFound is returned by stores for unknown match ids.
var ErrReplayNotFound = errors.New("replay not found")

// ReplayLog is everything needed to reproduce a match: the scenario it ran,
// the seed, and the commands issued with their ticks.
type ReplayLog struct {
	MatchID       string
	Scenario      string
	Seed          uint64
	InitialHash   string
	FinalHash     string
	Ticks         int
	Commands      []CommandRecord
	RecordedAt    time.Time
	FormatVersion int
}

// NewMatchID returns a fresh random match identifier.
func NewMatchID() string {
	return uuid.NewString()
}

// Append adds a command record.
func (l *ReplayLog) Append(rec CommandRecord) {
	l.Commands = append(l.Commands, rec)
}

// ReplayStore persists replay logs.
type ReplayStore interface {
	SaveReplay(ctx context.Context, log *ReplayLog) error
	LoadReplay(ctx context.Context, matchID string) (*ReplayLog, error)
}

// FileReplayStore keeps one gzipped gob file per match in a directory.
type FileReplayStore struct {
	dir string
}

// NewFileReplayStore stores replays under dir, creating it on first save.
func NewFileReplayStore(dir string) *FileReplayStore {
	return &FileReplayStore{dir: dir}
}

func (fs *FileReplayStore) path(matchID string) string {
	return filepath.Join(fs.dir, fmt.Sprintf("%s.replay", matchID))
}

// SaveReplay writes log to <dir>/<match id>.replay.
func (fs *FileReplayStore) SaveReplay(_ context.Context, log *ReplayLog) error {
	if log == nil || log.MatchID == "" {
		return fmt.Errorf("replay log has no match id")
	}
	if err := os.MkdirAll(fs.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(fs.path(log.MatchID))
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	gz := gzip.NewWriter(file)
	out := *log
	out.FormatVersion = ReplayFormatVersion
	if err := gob.NewEncoder(gz).Encode(&out); err != nil {
		gz.Close()
		return fmt.Errorf("failed to encode replay: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("failed to flush replay: %w", err)
	}
	return nil
}

// LoadReplay reads a log written by SaveReplay.
func (fs *FileReplayStore) LoadReplay(_ context.Context, matchID string) (*ReplayLog, error) {
	file, err := os.Open(fs.path(matchID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrReplayNotFound, matchID)
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	gz, err := gzip.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gz.Close()

	var log ReplayLog
	if err := gob.NewDecoder(gz).Decode(&log); err != nil {
		return nil, fmt.Errorf("failed to decode replay: %w", err)
	}
	if log.FormatVersion != ReplayFormatVersion {
		return nil, fmt.Errorf("unsupported replay version: %d", log.FormatVersion)
	}
	return &log, nil
}

// ReplayRecorder collects command logs for running matches and hands them
// to a store when a match finishes.
type ReplayRecorder struct {
	logger *zap.Logger
	store  ReplayStore

	mu   sync.Mutex
	logs map[string]*ReplayLog
}

// NewReplayRecorder creates a recorder persisting to store.
func NewReplayRecorder(logger *zap.Logger, store ReplayStore) *ReplayRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReplayRecorder{
		logger: logger,
		store:  store,
		logs:   make(map[string]*ReplayLog),
	}
}

// StartRecording opens a log for the match running scenario from s.
func (rr *ReplayRecorder) StartRecording(matchID, scenario string, s *State) {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	rr.logs[matchID] = &ReplayLog{
		MatchID:     matchID,
		Scenario:    scenario,
		Seed:        s.RNG().Seed(),
		InitialHash: s.Checksum(),
	}
	rr.logger.Info("started replay recording",
		zap.String("match_id", matchID),
		zap.String("scenario", scenario),
	)
}

// Sink returns a callback suitable for NewRecordingController.
func (rr *ReplayRecorder) Sink(matchID string) func(CommandRecord) {
	return func(rec CommandRecord) { rr.Record(matchID, rec) }
}

// Record appends rec to the match log. Unknown matches are ignored.
func (rr *ReplayRecorder) Record(matchID string, rec CommandRecord) {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	log, ok := rr.logs[matchID]
	if !ok {
		return
	}
	log.Append(rec)
	rr.logger.Debug("recorded command",
		zap.String("match_id", matchID),
		zap.Int("tick", rec.Tick),
		zap.String("command", string(rec.Type)),
	)
}

// Get returns the in-progress log for a match.
func (rr *ReplayRecorder) Get(matchID string) (*ReplayLog, bool) {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	log, ok := rr.logs[matchID]
	return log, ok
}

// Finish stamps the final state onto the log, saves it and forgets it.
func (rr *ReplayRecorder) Finish(ctx context.Context, matchID string, s *State) (*ReplayLog, error) {
	rr.mu.Lock()
	log, ok := rr.logs[matchID]
	if !ok {
		rr.mu.Unlock()
		return nil, fmt.Errorf("no replay found for match %s", matchID)
	}
	delete(rr.logs, matchID)
	rr.mu.Unlock()

	log.Ticks = s.Tick()
	log.FinalHash = s.Checksum()
	log.RecordedAt = time.Now().UTC()

	if rr.store != nil {
		if err := rr.store.SaveReplay(ctx, log); err != nil {
			rr.logger.Error("failed to save replay", zap.String("match_id", matchID), zap.Error(err))
			return log, fmt.Errorf("failed to save replay: %w", err)
		}
	}
	rr.logger.Info("saved replay",
		zap.String("match_id", matchID),
		zap.Int("commands", len(log.Commands)),
		zap.Int("ticks", log.Ticks),
	)
	return log, nil
}

// Discard drops a match log without saving it.
func (rr *ReplayRecorder) Discard(matchID string) {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	delete(rr.logs, matchID)
}

// ErrReplayDiverged means a replayed match did not reach the recorded state.
var ErrReplayDiverged = errors.New("replay diverged")

// Replay rebuilds sc, feeds it the recorded commands and runs it for the
// recorded number of ticks. The returned state is valid even when the final
// checksum does not match; the error then wraps ErrReplayDiverged.
func Replay(logger *zap.Logger, sc Scenario, log *ReplayLog) (*State, error) {
	if log.Seed != sc.Seed {
		return nil, fmt.Errorf("replay seed %d does not match scenario seed %d", log.Seed, sc.Seed)
	}
	ctrl, err := NewReplayController(log.Commands)
	if err != nil {
		return nil, fmt.Errorf("failed to decode replay commands: %w", err)
	}
	s, err := sc.Build(ctrl)
	if err != nil {
		return nil, err
	}
	if log.InitialHash != "" && s.Checksum() != log.InitialHash {
		return nil, fmt.Errorf("scenario %q does not match the recorded starting state", sc.Name)
	}

	ticks := log.Ticks
	if ticks == 0 {
		for _, rec := range log.Commands {
			if rec.Tick > ticks {
				ticks = rec.Tick
			}
		}
	}
	NewLoop(logger, nil).Run(s, ticks)

	if log.FinalHash != "" {
		if got := s.Checksum(); got != log.FinalHash {
			return s, fmt.Errorf("%w: match %s final checksum %s, recorded %s", ErrReplayDiverged, log.MatchID, got, log.FinalHash)
		}
	}
	return s, nil
}
