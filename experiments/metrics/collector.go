package metrics

import "time"

type SearchMetric struct {
	Playouts     int
	Expansions   int
	TerminalHits int
	MaxDepth     int
	Duration     time.Duration
	Skipped      bool // single legal action, no search ran
}

type MoveMetric struct {
	Step   int
	Player int
	Action int
	SearchMetric
}

type GameMetric struct {
	StartingAgent int // Index of the contestant seated first
	Outcome       float64
	StartTime     time.Time
	EndTime       time.Time
	Duration      time.Duration
	TotalMoves    int
}

// Collector gathers statistics for a single search. Implementations are not
// safe for concurrent use; every searcher owns its collector.
type Collector interface {
	Start()
	AddPlayout(depth int)
	AddExpansion()
	AddTerminal()
	Skip()
	Complete() SearchMetric
}

type collector struct {
	startTime    time.Time
	playouts     int
	expansions   int
	terminalHits int
	maxDepth     int
	skipped      bool
}

func NewCollector() Collector {
	return &collector{}
}

func (m *collector) Start() {
	*m = collector{startTime: time.Now()}
}

func (m *collector) AddPlayout(depth int) {
	m.playouts++
	m.maxDepth = max(m.maxDepth, depth)
}

func (m *collector) AddExpansion() {
	m.expansions++
}

func (m *collector) AddTerminal() {
	m.terminalHits++
}

func (m *collector) Skip() {
	m.skipped = true
}

func (m *collector) Complete() SearchMetric {
	return SearchMetric{
		Playouts:     m.playouts,
		Expansions:   m.expansions,
		TerminalHits: m.terminalHits,
		MaxDepth:     m.maxDepth,
		Duration:     time.Since(m.startTime),
		Skipped:      m.skipped,
	}
}

type dummyCollector struct{}

func NewDummyCollector() Collector {
	return &dummyCollector{}
}

func (m *dummyCollector) Start()                 {}
func (m *dummyCollector) AddPlayout(int)         {}
func (m *dummyCollector) AddExpansion()          {}
func (m *dummyCollector) AddTerminal()           {}
func (m *dummyCollector) Skip()                  {}
func (m *dummyCollector) Complete() SearchMetric { return SearchMetric{} }
