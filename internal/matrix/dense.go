package matrix

import "fmt"

// #region dense

// Dense is a row-major matrix of float64 cells backed by one flat
// slice.
type Dense struct {
	rows, cols int
	data       []float64
}

// NewDense creates a zero matrix with the given shape.
func NewDense(rows, cols int) *Dense {
	return &Dense{rows: rows, cols: cols, data: make([]float64, rows*cols)}
}

// Dims returns the matrix shape.
func (m *Dense) Dims() (rows, cols int) { return m.rows, m.cols }

// At returns the cell at (i, j).
func (m *Dense) At(i, j int) float64 {
	m.check(i, j)
	return m.data[i*m.cols+j]
}

// Set writes the cell at (i, j).
func (m *Dense) Set(i, j int, v float64) {
	m.check(i, j)
	m.data[i*m.cols+j] = v
}

// Row returns the i-th row as a slice view into the matrix.
func (m *Dense) Row(i int) []float64 {
	if i < 0 || i >= m.rows {
		panic(fmt.Sprintf("matrix: row %d out of range [0,%d)", i, m.rows))
	}
	return m.data[i*m.cols : (i+1)*m.cols]
}

// AppendRow grows the matrix by one row.
func (m *Dense) AppendRow(row []float64) error {
	if len(row) != m.cols {
		return fmt.Errorf("matrix: appending row of length %d to %d-column matrix", len(row), m.cols)
	}
	m.data = append(m.data, row...)
	m.rows++
	return nil
}

// Equal reports cell-for-cell equality with another matrix.
func (m *Dense) Equal(other *Dense) bool {
	if m.rows != other.rows || m.cols != other.cols {
		return false
	}
	for i, v := range m.data {
		if other.data[i] != v {
			return false
		}
	}
	return true
}

func (m *Dense) check(i, j int) {
	if i < 0 || i >= m.rows || j < 0 || j >= m.cols {
		panic(fmt.Sprintf("matrix: index (%d,%d) out of range %dx%d", i, j, m.rows, m.cols))
	}
}

// #endregion dense
