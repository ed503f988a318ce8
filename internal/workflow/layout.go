package workflow

// Grid layout parameters for defaulted positions. Values match the canvas
// spacing the dashboard uses for freshly dropped nodes.
const (
	gridColumns = 4
	gridStepX   = 260.0
	gridStepY   = 160.0
	gridOffset  = 80.0
)

// NormalizePositions stamps a deterministic grid position onto every node
// whose position is absent or malformed (NaN/Inf). Nodes with a usable
// position are left alone. Called on load; purely presentational.
func NormalizePositions(d *Definition) {
	for i := range d.Nodes {
		if d.Nodes[i].Position.valid() {
			continue
		}
		d.Nodes[i].Position = GridPosition(i)
	}
}

// GridPosition returns the default position for the i-th node of a workflow.
func GridPosition(i int) *Position {
	return &Position{
		X: gridOffset + float64(i%gridColumns)*gridStepX,
		Y: gridOffset + float64(i/gridColumns)*gridStepY,
	}
}
