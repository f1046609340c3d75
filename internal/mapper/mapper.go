package mapper

import (
	"log/slog"
	"sort"
	"time"

	"github.com/squallbio/squall/internal/config"
	"github.com/squallbio/squall/internal/event"
	"github.com/squallbio/squall/internal/index"
	"github.com/squallbio/squall/internal/model"
	"github.com/squallbio/squall/internal/seeds"
)

// State is the per-read mapping state machine:
// INACTIVE -> MAPPING -> {SUCCESS, FAILURE} -> INACTIVE on the next read.
type State uint8

const (
	StateInactive State = iota
	StateMapping
	StateSuccess
	StateFailure
)

func (s State) String() string {
	switch s {
	case StateInactive:
		return "INACTIVE"
	case StateMapping:
		return "MAPPING"
	case StateSuccess:
		return "SUCCESS"
	case StateFailure:
		return "FAILURE"
	default:
		return "UNKNOWN"
	}
}

// Detector segments raw samples into events. Implemented by
// event.Detector; tests may substitute a scripted one.
type Detector interface {
	Add(sample float32) (event.Event, bool)
	Reset()
}

// Normalizer scales a raw event measurement onto the model level space.
type Normalizer interface {
	Normalize(x float64) float64
	Reset()
}

// SeedSink is the clustering stage seeds are submitted to.
type SeedSink interface {
	Add(seeds.Seed)
	Best() (seeds.Cluster, bool)
	Reset()
}

// TraceReader supplies one whole recorded trace for the non-streaming
// entry point.
type TraceReader interface {
	Name() string
	Number() uint32
	Samples() ([]float32, error)
}

// TimingHook receives per-phase durations when installed. It is
// instrumentation only: a nil hook costs one branch per phase and no
// data-structure space.
type TimingHook func(phase string, d time.Duration)

// Chunk is one block of raw samples handed over by the real-time
// scheduler.
type Chunk struct {
	Channel uint16
	Number  uint32
	Samples []float32
}

// Runtime bundles the shared, read-only collaborators: validated
// parameters, the pore model, the index, the reference table, and the
// precomputed per-k-mer start ranges. One Runtime serves every channel
// worker concurrently.
type Runtime struct {
	cfg        *config.Params
	mdl        *model.Model
	idx        index.Searcher
	ref        *index.Reference
	kmerRanges []index.Range
}

// NewRuntime validates the parameters and precomputes the k-mer range
// table. Configuration errors surface here, never during mapping.
func NewRuntime(cfg *config.Params, mdl *model.Model, idx index.Searcher, ref *index.Reference) (*Runtime, error) {
	if err := cfg.Finalize(); err != nil {
		return nil, err
	}
	kr := make([]index.Range, mdl.NumKmers())
	for k := range kr {
		kr[k] = idx.SubRange(mdl.KmerBases(uint16(k)))
	}
	return &Runtime{cfg: cfg, mdl: mdl, idx: idx, ref: ref, kmerRanges: kr}, nil
}

// Params returns the validated run parameters.
func (rt *Runtime) Params() *config.Params { return rt.cfg }

// Option configures a Mapper.
type Option func(*Mapper)

// WithDetector substitutes the event segmenter.
func WithDetector(d Detector) Option {
	return func(m *Mapper) { m.det = d }
}

// WithNormalizer substitutes the signal normalizer.
func WithNormalizer(n Normalizer) Option {
	return func(m *Mapper) { m.norm = n }
}

// WithSeedSink substitutes the clustering stage.
func WithSeedSink(s SeedSink) Option {
	return func(m *Mapper) { m.tracker = s }
}

// WithTimingHook installs the optional phase-timing hook.
func WithTimingHook(h TimingHook) Option {
	return func(m *Mapper) { m.timing = h }
}

// WithClock overrides the wall clock; used by tests for stable timing
// fields.
func WithClock(now func() time.Time) Option {
	return func(m *Mapper) { m.now = now }
}

// Mapper is the per-channel streaming engine. All methods must be called
// from a single goroutine; see the package documentation for the
// concurrency contract.
type Mapper struct {
	rt  *Runtime
	cfg *config.Params

	det     Detector
	norm    Normalizer
	tracker SeedSink

	channel uint16
	readNum uint32
	state   State

	prevPaths []PathBuffer
	nextPaths []PathBuffer
	arena     *probArena
	kmerProbs []float64
	// sourcesAdded marks starting ranges already represented this event
	// so the same range is not seeded twice.
	sourcesAdded []bool
	hasChild     []bool

	eventIdx  int
	sampleCnt int64

	chunk          []float32
	chunkProcessed bool

	loc    ReadLoc
	popped bool

	staleNum uint32
	hasStale bool

	startT time.Time
	now    func() time.Time
	timing TimingHook
}

// NewMapper builds the engine for one device channel.
func (rt *Runtime) NewMapper(channel uint16, opts ...Option) *Mapper {
	m := &Mapper{
		rt:             rt,
		cfg:            rt.cfg,
		det:            event.NewDetector(rt.cfg.Event),
		norm:           event.NewNormalizer(rt.mdl.LevelMean(), rt.mdl.LevelStdv()),
		tracker:        seeds.NewTracker(rt.idx, int(rt.cfg.MaxRepCopy), int64(rt.cfg.SeedLen)),
		channel:        channel,
		state:          StateInactive,
		prevPaths:      make([]PathBuffer, 0, rt.cfg.MaxPaths),
		nextPaths:      make([]PathBuffer, 0, rt.cfg.MaxPaths),
		arena:          newProbArena(maxPathLen + 1),
		kmerProbs:      make([]float64, rt.mdl.NumKmers()),
		sourcesAdded:   make([]bool, rt.mdl.NumKmers()),
		chunkProcessed: true,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Channel returns the device channel this instance is bound to.
func (m *Mapper) Channel() uint16 { return m.channel }

// State returns the current per-read state.
func (m *Mapper) State() State { return m.state }

// Finished reports whether the current read reached a terminal state.
func (m *Mapper) Finished() bool {
	return m.state == StateSuccess || m.state == StateFailure
}

// NewRead abandons whatever the channel was doing and reinitializes for
// the next read. Every hypothesis buffer of the abandoned read is
// released before state is rebuilt: a new read never observes the prior
// read's memory.
func (m *Mapper) NewRead(name string, number uint32) {
	if m.state == StateMapping {
		m.staleNum = m.readNum
		m.hasStale = true
	}
	m.releasePaths(&m.prevPaths)
	m.releasePaths(&m.nextPaths)
	m.det.Reset()
	m.norm.Reset()
	m.tracker.Reset()
	m.eventIdx = 0
	m.sampleCnt = 0
	m.chunk = m.chunk[:0]
	m.chunkProcessed = true
	m.readNum = number
	m.loc = newReadLoc(name, m.channel, number)
	m.popped = false
	m.state = StateMapping
	m.startT = m.now()
	slog.Debug("new read", "name", name, "channel", m.channel, "number", number)
}

// PrevUnfinished reports, exactly once, the number of the previous read
// on this channel if it never reached a terminal state before read next
// began. The caller decides whether to discard or flag it.
func (m *Mapper) PrevUnfinished(next uint32) (uint32, bool) {
	if m.hasStale && next == m.readNum {
		m.hasStale = false
		return m.staleNum, true
	}
	return 0, false
}

// AddSample feeds one raw sample and reports whether the read finished.
func (m *Mapper) AddSample(s float32) bool {
	if m.state != StateMapping {
		return m.Finished()
	}
	m.sampleCnt++
	evt, ok := m.det.Add(s)
	if !ok {
		return false
	}
	m.addEvent(evt)
	return m.Finished()
}

// AddSamples feeds a block of samples, stopping early on a terminal
// state, and returns a snapshot of the result record.
func (m *Mapper) AddSamples(samples []float32) ReadLoc {
	for _, s := range samples {
		if m.AddSample(s) {
			break
		}
	}
	return m.loc
}

// MapTrace is the whole-trace convenience entry point: it starts a new
// read from the reader, feeds every sample, finalizes, and hands off the
// result.
func (m *Mapper) MapTrace(tr TraceReader) (ReadLoc, error) {
	samples, err := tr.Samples()
	if err != nil {
		return ReadLoc{}, err
	}
	m.NewRead(tr.Name(), tr.Number())
	for _, s := range samples {
		if m.AddSample(s) {
			break
		}
	}
	if m.state == StateMapping {
		m.finalize()
	}
	loc, _ := m.PopLoc()
	return loc, nil
}

// SwapChunk stages a block of samples from the scheduler, exchanging
// buffers rather than copying. It refuses when the previous chunk is
// still pending or the read is not mapping.
func (m *Mapper) SwapChunk(c *Chunk) bool {
	if m.state != StateMapping || !m.chunkProcessed {
		return false
	}
	m.chunk, c.Samples = c.Samples, m.chunk[:0]
	m.chunkProcessed = false
	return true
}

// ProcessChunk segments the staged chunk and advances mapping by up to
// the per-chunk event budget. Returns the number of events processed.
func (m *Mapper) ProcessChunk() int {
	if m.chunkProcessed {
		return 0
	}
	batch := m.cfg.MaxEvents(m.eventIdx)
	n := 0
	for _, s := range m.chunk {
		if m.state != StateMapping || n >= batch {
			break
		}
		m.sampleCnt++
		evt, ok := m.det.Add(s)
		if !ok {
			continue
		}
		m.addEvent(evt)
		n++
	}
	m.chunk = m.chunk[:0]
	m.chunkProcessed = true
	return n
}

// ChunkProcessed reports whether the staged chunk has been consumed, so
// a scheduler can poll without blocking.
func (m *Mapper) ChunkProcessed() bool { return m.chunkProcessed }

// MapChunk processes the staged chunk and reports whether the read
// reached a terminal state.
func (m *Mapper) MapChunk() bool {
	m.ProcessChunk()
	return m.Finished()
}

// Loc returns the result record without consuming it.
func (m *Mapper) Loc() ReadLoc { return m.loc }

// PopLoc hands the result off exactly once. Before the read finishes, or
// on a second call, it reports false with an empty record.
func (m *Mapper) PopLoc() (ReadLoc, bool) {
	if !m.Finished() || m.popped {
		return ReadLoc{}, false
	}
	m.popped = true
	return m.loc, true
}

// addEvent advances the frontier by one generation.
func (m *Mapper) addEvent(evt event.Event) {
	var t0 time.Time
	if m.timing != nil {
		t0 = m.now()
	}

	normMean := m.norm.Normalize(evt.Mean)
	for k := range m.kmerProbs {
		m.kmerProbs[k] = m.rt.mdl.MatchProb(uint16(k), normMean)
	}
	m.phase("probs", &t0)

	for i := range m.sourcesAdded {
		m.sourcesAdded[i] = false
	}
	m.nextPaths = m.nextPaths[:0]

	// extend live parents
	for i := range m.prevPaths {
		p := &m.prevPaths[i]
		if !p.valid() {
			continue
		}
		thresh := m.cfg.ProbThresh(p.fmRange.Length())
		for b := uint8(0); b < 4; b++ {
			nk := m.rt.mdl.NextKmer(p.kmer, b)
			prob := m.kmerProbs[nk]
			if prob < thresh {
				continue
			}
			r := m.rt.idx.Next(p.fmRange, model.Bases[b])
			if !r.Valid() {
				continue // expected pruning
			}
			c := m.appendPath()
			c.makeChild(p, r, nk, prob, EventMatch, m.arena, m.cfg.SeedLen)
			c.parent = int32(i)
			m.sourcesAdded[nk] = true
		}
		if int(p.consecStays) < m.cfg.MaxConsecStay {
			if prob := m.kmerProbs[p.kmer]; prob >= thresh {
				c := m.appendPath()
				c.makeChild(p, p.fmRange, p.kmer, prob, EventStay, m.arena, m.cfg.SeedLen)
				c.parent = int32(i)
			}
		}
	}
	m.phase("extend", &t0)

	// sources at starting ranges not represented this event
	srcProb := m.cfg.SourceProb()
	for k, prob := range m.kmerProbs {
		if prob < srcProb || m.sourcesAdded[k] {
			continue
		}
		r := m.rt.kmerRanges[k]
		if !r.Valid() {
			continue
		}
		c := m.appendPath()
		c.makeSource(r, uint16(k), prob, m.arena)
		m.sourcesAdded[k] = true
	}
	m.phase("sources", &t0)

	// rank then keep top-K under the frontier cap
	if len(m.nextPaths) > m.cfg.MaxPaths {
		paths := m.nextPaths
		sort.Slice(paths, func(a, b int) bool {
			return paths[a].better(&paths[b])
		})
		for i := m.cfg.MaxPaths; i < len(paths); i++ {
			paths[i].invalidate(m.arena)
		}
		m.nextPaths = paths[:m.cfg.MaxPaths]
	}
	m.phase("sort", &t0)

	// surviving parents evaluate seed validity
	if cap(m.hasChild) < len(m.prevPaths) {
		m.hasChild = make([]bool, len(m.prevPaths))
	}
	hasChild := m.hasChild[:len(m.prevPaths)]
	for i := range hasChild {
		hasChild[i] = false
	}
	for i := range m.nextPaths {
		if pi := m.nextPaths[i].parent; pi >= 0 {
			hasChild[pi] = true
		}
	}
	for i := range m.prevPaths {
		p := &m.prevPaths[i]
		if !p.valid() || !p.isSeedValid(m.cfg, hasChild[i]) {
			continue
		}
		m.submitSeed(p)
		if hasChild[i] {
			// the lineage continues; it must not report again
			for j := range m.nextPaths {
				if m.nextPaths[j].parent == int32(i) {
					m.nextPaths[j].emitted = true
				}
			}
		}
	}
	m.phase("seeds", &t0)

	// retire the old generation and swap buffers
	for i := range m.prevPaths {
		m.prevPaths[i].invalidate(m.arena)
	}
	m.prevPaths, m.nextPaths = m.nextPaths, m.prevPaths[:0]
	m.eventIdx++

	if m.tryResolve() {
		return
	}
	if m.eventIdx >= m.cfg.MaxEventsProc || len(m.prevPaths) == 0 {
		m.fail()
	}
}

func (m *Mapper) appendPath() *PathBuffer {
	m.nextPaths = append(m.nextPaths, PathBuffer{probs: noHandle, parent: -1})
	return &m.nextPaths[len(m.nextPaths)-1]
}

func (m *Mapper) submitSeed(p *PathBuffer) {
	m.tracker.Add(seeds.Seed{
		Range:    p.fmRange,
		EventIdx: m.eventIdx,
		MatchLen: int64(m.rt.mdl.K()) + int64(p.matches) - 1,
		Prob:     p.seedProb,
	})
	p.emitted = true
}

// tryResolve asks the clustering stage for its best cluster and, when
// both confidence floors and the minimum span are met, finalizes the
// result record and transitions to SUCCESS.
func (m *Mapper) tryResolve() bool {
	cl, ok := m.tracker.Best()
	if !ok {
		return false
	}
	if cl.TopConf < m.cfg.MinTopConf || cl.MeanConf < m.cfg.MinMeanConf {
		return false
	}
	if cl.TextEn-cl.TextSt < m.cfg.MinAlnLen {
		return false
	}
	loc, ok := m.rt.ref.Coord(cl.TextSt, cl.TextEn)
	if !ok {
		return false
	}
	m.loc.setRef(loc, cl, m.eventIdx, m.elapsed())
	m.state = StateSuccess
	slog.Debug("read mapped",
		"name", m.loc.Name,
		"channel", m.channel,
		"ref", loc.Name,
		"start", loc.Start,
		"end", loc.End,
		"fwd", loc.Fwd,
		"events", m.eventIdx,
	)
	return true
}

func (m *Mapper) fail() {
	m.loc.finish(m.eventIdx, m.elapsed())
	m.state = StateFailure
	slog.Debug("read unmapped",
		"name", m.loc.Name,
		"channel", m.channel,
		"events", m.eventIdx,
	)
}

// finalize gives every live hypothesis its last chance to seed, then
// resolves or fails. Called when the sample stream ends while mapping.
func (m *Mapper) finalize() {
	for i := range m.prevPaths {
		p := &m.prevPaths[i]
		if p.valid() && p.isSeedValid(m.cfg, false) {
			m.submitSeed(p)
		}
	}
	if !m.tryResolve() {
		m.fail()
	}
}

func (m *Mapper) releasePaths(paths *[]PathBuffer) {
	for i := range *paths {
		(*paths)[i].invalidate(m.arena)
	}
	*paths = (*paths)[:0]
}

func (m *Mapper) elapsed() time.Duration {
	return m.now().Sub(m.startT)
}

func (m *Mapper) phase(name string, t0 *time.Time) {
	if m.timing == nil {
		return
	}
	now := m.now()
	m.timing(name, now.Sub(*t0))
	*t0 = now
}
