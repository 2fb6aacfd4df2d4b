package matrix

// #region csr

// CSR is a compressed sparse row matrix: only non-zero cells are
// stored, as three flat arrays in the standard values / column
// indices / row-start offsets layout.
type CSR struct {
	cols    int
	data    []float64
	indices []int
	indptr  []int // length rows+1
}

// NewCSR creates an empty sparse matrix with a fixed column count.
func NewCSR(cols int) *CSR {
	return &CSR{cols: cols, indptr: []int{0}}
}

// Dims returns the matrix shape.
func (m *CSR) Dims() (rows, cols int) { return len(m.indptr) - 1, m.cols }

// NNZ returns the number of stored cells.
func (m *CSR) NNZ() int { return len(m.data) }

// Append stores one non-zero cell in the row currently being built.
// Cells belong to the open row until CloseRow is called.
func (m *CSR) Append(col int, v float64) {
	m.indices = append(m.indices, col)
	m.data = append(m.data, v)
}

// CloseRow finishes the row currently being built.
func (m *CSR) CloseRow() {
	m.indptr = append(m.indptr, len(m.data))
}

// At returns the cell at (i, j), zero if not stored.
func (m *CSR) At(i, j int) float64 {
	for k := m.indptr[i]; k < m.indptr[i+1]; k++ {
		if m.indices[k] == j {
			return m.data[k]
		}
	}
	return 0
}

// Data returns the stored cell values.
func (m *CSR) Data() []float64 { return m.data }

// Indices returns the column index of each stored cell.
func (m *CSR) Indices() []int { return m.indices }

// Indptr returns the row-start offsets, of length rows+1.
func (m *CSR) Indptr() []int { return m.indptr }

// Dense materializes every cell into a dense matrix.
func (m *CSR) Dense() *Dense {
	rows, cols := m.Dims()
	out := NewDense(rows, cols)
	for i := 0; i < rows; i++ {
		for k := m.indptr[i]; k < m.indptr[i+1]; k++ {
			out.Set(i, m.indices[k], m.data[k])
		}
	}
	return out
}

// #endregion csr
