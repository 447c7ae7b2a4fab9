// Package download implements the bulk download engine: request
// normalization, recursive folder expansion, bounded-concurrency transfers,
// cooperative cancellation, and interactive conflict resolution.
package download

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/drivebridge/drivebridge/internal/cache"
	"github.com/drivebridge/drivebridge/internal/constants"
	"github.com/drivebridge/drivebridge/internal/events"
	"github.com/drivebridge/drivebridge/internal/logging"
	"github.com/drivebridge/drivebridge/internal/models"
	"github.com/drivebridge/drivebridge/internal/progress"
	"github.com/drivebridge/drivebridge/internal/resolver"
	"github.com/drivebridge/drivebridge/internal/util/paths"
)

// ErrBusy is returned when a download invocation is already running.
var ErrBusy = errors.New("a download operation is already in progress")

// Orchestrator runs download invocations. One instance is shared for the
// process lifetime; at most one invocation runs at a time.
type Orchestrator struct {
	transport Transport
	cache     *cache.FileCache
	resolver  *resolver.Resolver
	policy    *PolicyStore
	prompter  Prompter
	observer  progress.Observer
	log       *logging.Logger
	bus       *events.EventBus // optional

	// Concurrency bounds simultaneous leaf transfers. Folder exploration
	// releases its slot before recursing.
	Concurrency int

	// OnComplete fires after every invocation settles, successful or not.
	// The embedding host uses it to rescan the local filesystem.
	OnComplete func()

	inProgress atomic.Bool
	total      atomic.Int64
	promptMu   sync.Mutex
}

// NewOrchestrator wires the engine to its collaborators.
func NewOrchestrator(t Transport, fc *cache.FileCache, prompter Prompter, observer progress.Observer, log *logging.Logger) *Orchestrator {
	if observer == nil {
		observer = progress.NopObserver{}
	}
	if log == nil {
		log = logging.NewDefaultCLILogger()
	}
	return &Orchestrator{
		transport:   t,
		cache:       fc,
		resolver:    resolver.New(fc),
		policy:      NewPolicyStore(),
		prompter:    prompter,
		observer:    observer,
		log:         log,
		Concurrency: constants.MaxConcurrentDownloads,
	}
}

// SetEventBus attaches an event bus for batch lifecycle events.
func (o *Orchestrator) SetEventBus(bus *events.EventBus) {
	o.bus = bus
}

// Policy exposes the conflict policy store, mainly for tests and status UIs.
func (o *Orchestrator) Policy() *PolicyStore {
	return o.policy
}

// Download runs one invocation: normalize ids, resolve the target
// directory, then transfer everything with bounded concurrency. Individual
// unit failures are logged and never abort siblings; only a declined
// directory prompt or a busy engine fails the invocation itself.
func (o *Orchestrator) Download(ctx context.Context, ids []string, targetDir string) error {
	if !o.inProgress.CompareAndSwap(false, true) {
		return ErrBusy
	}
	started := time.Now()
	defer func() {
		o.inProgress.Store(false)
		if o.bus != nil {
			o.bus.Publish(&events.BatchEvent{
				BaseEvent: events.BaseEvent{EventType: events.EventBatchFinished, Time: time.Now()},
				Duration:  time.Since(started),
			})
		}
		if o.OnComplete != nil {
			o.OnComplete()
		}
	}()

	nodes := o.Normalize(ids)
	if len(nodes) == 0 {
		o.log.Debug().Msg("download request resolved to an empty set")
		return nil
	}

	if targetDir == "" {
		dir, err := o.prompter.SelectTargetDir(ctx)
		if err != nil {
			return err
		}
		targetDir = dir
	}

	// A single plain file skips the "remember this choice" upsell
	if len(nodes) == 1 && !nodes[0].IsFolder {
		o.policy.Reset(PolicyAlwaysAsk)
	} else {
		o.policy.Reset(PolicyUndetermined)
	}

	o.total.Store(int64(len(nodes)))
	o.observer.OnTotalCountChanged(len(nodes))

	sem := semaphore.NewWeighted(int64(o.Concurrency))
	var g errgroup.Group
	for _, node := range nodes {
		o.enqueue(ctx, &g, sem, node, targetDir)
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// Normalize expands a raw id list into the set of cached nodes to process:
// blanks dropped, exact repeats deduplicated, and any node with an ancestor
// also present removed (the ancestor's recursive download covers it).
// Runs to fixpoint, so the result is independent of input ordering and
// normalizing an already-normalized set is the identity.
func (o *Orchestrator) Normalize(ids []string) []*models.FileNode {
	seen := make(map[string]bool, len(ids))
	var nodes []*models.FileNode
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		if node := o.cache.GetOrNil(id); node != nil {
			nodes = append(nodes, node)
		}
	}

	for changed := true; changed; {
		changed = false
		for i := 0; i < len(nodes); i++ {
			for j := range nodes {
				if i == j {
					continue
				}
				if o.resolver.IsAncestorOf(nodes[j].ID, nodes[i]) {
					nodes = append(nodes[:i], nodes[i+1:]...)
					changed = true
					i--
					break
				}
			}
		}
	}
	return nodes
}

// enqueue spawns one unit. Every unit starts by acquiring a slot; folders
// give theirs back as soon as their listing is known.
func (o *Orchestrator) enqueue(ctx context.Context, g *errgroup.Group, sem *semaphore.Weighted, node *models.FileNode, destDir string) {
	g.Go(func() error {
		if err := sem.Acquire(ctx, 1); err != nil {
			return nil // invocation cancelled while queued
		}
		if node.IsFolder {
			o.exploreFolder(ctx, g, sem, node, destDir)
		} else {
			defer sem.Release(1)
			o.transferFile(ctx, node, destDir)
		}
		return nil
	})
}

// exploreFolder lists a folder if needed, creates its local directory, and
// recurses into each child as a new unit. The semaphore slot is released
// before recursion: only leaf transfers hold slots, so deep trees cannot
// deadlock the pool.
func (o *Orchestrator) exploreFolder(ctx context.Context, g *errgroup.Group, sem *semaphore.Weighted, folder *models.FileNode, destDir string) {
	released := false
	release := func() {
		if !released {
			sem.Release(1)
			released = true
		}
	}
	defer release()

	if ctx.Err() != nil {
		return
	}

	if folder.ChildrenState == models.ChildrenUnknown {
		if err := o.cache.RefreshChildren(ctx, folder.ID); err != nil {
			o.log.Error().Err(err).Str("folder", folder.Name).Msg("folder listing failed, skipping subtree")
			return
		}
		folder = o.cache.GetOrNil(folder.ID)
		if folder == nil {
			return
		}
	}
	release()

	dirPath := filepath.Join(destDir, paths.SanitizeFileName(folder.Name))
	finalPath, skip, err := o.resolveConflict(ctx, dirPath, true)
	if err != nil {
		o.log.Error().Err(err).Str("folder", folder.Name).Msg("conflict prompt failed, skipping subtree")
		return
	}
	if skip {
		o.log.Info().Str("folder", folder.Name).Msg("existing directory skipped")
		return
	}
	if err := os.MkdirAll(finalPath, 0o755); err != nil {
		o.log.Error().Err(err).Str("path", finalPath).Msg("failed to create directory")
		return
	}

	newTotal := o.total.Add(int64(len(folder.Children)))
	o.observer.OnTotalCountChanged(int(newTotal))

	for _, childID := range folder.Children {
		child := o.cache.GetOrNil(childID)
		if child == nil {
			continue
		}
		o.enqueue(ctx, g, sem, child, finalPath)
	}
}

// resolveConflict decides what to do when path already exists. It returns
// the path to actually write (possibly suffixed), or skip=true. Consulted
// immediately before every filesystem write, for files and directories
// alike.
func (o *Orchestrator) resolveConflict(ctx context.Context, path string, isFolder bool) (string, bool, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path, false, nil
	}

	resolve := func(p Policy) (string, bool, bool) {
		switch p {
		case PolicyAlwaysOverwrite:
			return path, false, true
		case PolicyAlwaysSkip:
			return "", true, true
		case PolicyAlwaysUniqueName:
			return paths.UniquePath(path), false, true
		default:
			return "", false, false
		}
	}
	if p, skip, done := resolve(o.policy.Get()); done {
		return p, skip, nil
	}

	// One prompt at a time. Another unit may have settled the policy while
	// we waited, so re-check before asking.
	o.promptMu.Lock()
	defer o.promptMu.Unlock()
	if p, skip, done := resolve(o.policy.Get()); done {
		return p, skip, nil
	}

	askRemember := o.policy.Get() == PolicyUndetermined
	choice, remember, err := o.prompter.ResolveConflict(ctx, path, isFolder, askRemember)
	if err != nil {
		return "", false, err
	}
	if askRemember {
		if remember {
			o.policy.Transition(policyFor(choice))
		} else {
			o.policy.Transition(PolicyAlwaysAsk)
		}
	}

	switch choice {
	case ChoiceSkip:
		return "", true, nil
	case ChoiceUniqueName:
		return paths.UniquePath(path), false, nil
	default:
		return path, false, nil
	}
}
