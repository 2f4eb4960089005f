package metrics

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// AgentConfig describes one tournament contestant.
type AgentConfig struct {
	ID         int    `yaml:"id"`
	Name       string `yaml:"name"`
	Kind       string `yaml:"kind"` // net, zero, mcts or random
	Playouts   int    `yaml:"playouts"`
	Stochastic bool   `yaml:"stochastic"`
}

type GameRecord struct {
	ID      int
	Agent1  int     // AgentConfig.ID
	Agent2  int     // AgentConfig.ID
	Outcome float64 // from Agent1's perspective
	GameMetric
}

type MoveRecord struct {
	Game int // GameRecord.ID
	MoveMetric
}

type Writer struct {
	baseDir string
}

// NewWriter creates <root>/<name>/<timestamp> for the files of one experiment.
func NewWriter(root, name string) (*Writer, error) {
	timestamp := time.Now().UTC().Format(time.RFC3339)
	baseDir := filepath.Join(root, name, timestamp)
	err := os.MkdirAll(baseDir, 0755)
	if err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	return &Writer{
		baseDir: baseDir,
	}, nil
}

func (w *Writer) Dir() string {
	return w.baseDir
}

func (w *Writer) writeCSV(file string, header []string, rows [][]string) error {
	path := filepath.Join(w.baseDir, file)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", file, err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write %s header: %w", file, err)
	}
	if err := writer.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write %s rows: %w", file, err)
	}
	return f.Close()
}

func (w *Writer) WriteAgentConfigs(configs []AgentConfig) error {
	rows := make([][]string, 0, len(configs))
	for _, config := range configs {
		rows = append(rows, []string{
			strconv.Itoa(config.ID),
			config.Name,
			config.Kind,
			strconv.Itoa(config.Playouts),
			strconv.FormatBool(config.Stochastic),
		})
	}
	return w.writeCSV("agent_configs.csv", []string{"id", "name", "kind", "playouts", "stochastic"}, rows)
}

func (w *Writer) WriteGameRecords(records []GameRecord) error {
	header := []string{"id", "agent1", "agent2", "starting_agent", "outcome", "total_moves", "start_time", "end_time", "duration"}
	rows := make([][]string, 0, len(records))
	for _, record := range records {
		rows = append(rows, []string{
			strconv.Itoa(record.ID),
			strconv.Itoa(record.Agent1),
			strconv.Itoa(record.Agent2),
			strconv.Itoa(record.StartingAgent),
			strconv.FormatFloat(record.Outcome, 'g', -1, 64),
			strconv.Itoa(record.TotalMoves),
			record.StartTime.Format(time.RFC3339Nano),
			record.EndTime.Format(time.RFC3339Nano),
			record.Duration.String(),
		})
	}
	return w.writeCSV("game_records.csv", header, rows)
}

func (w *Writer) WriteMoveRecords(records []MoveRecord) error {
	header := []string{"game", "step", "player", "action", "playouts", "expansions", "terminal_hits", "max_depth", "duration", "skipped"}
	rows := make([][]string, 0, len(records))
	for _, record := range records {
		rows = append(rows, []string{
			strconv.Itoa(record.Game),
			strconv.Itoa(record.Step),
			strconv.Itoa(record.Player),
			strconv.Itoa(record.Action),
			strconv.Itoa(record.Playouts),
			strconv.Itoa(record.Expansions),
			strconv.Itoa(record.TerminalHits),
			strconv.Itoa(record.MaxDepth),
			record.Duration.String(),
			strconv.FormatBool(record.Skipped),
		})
	}
	return w.writeCSV("move_records.csv", header, rows)
}

// WriteScores writes the score matrix with one row and one column per agent.
func (w *Writer) WriteScores(names []string, scores [][]float64) error {
	rows := make([][]string, 0, len(scores))
	for i, row := range scores {
		cells := []string{names[i]}
		for _, score := range row {
			cells = append(cells, strconv.FormatFloat(score, 'f', 4, 64))
		}
		rows = append(rows, cells)
	}
	return w.writeCSV("scores.csv", append([]string{"agent"}, names...), rows)
}
