package rowusage

import (
	"errors"
	"fmt"
	"math"
	"math/bits"
)

// NormalizedLimit is the common scale every sub-circuit is mapped onto by Normalize
const NormalizedLimit = 1_000_000

// ErrLayoutMismatch is returned when combining row usages with different sub-circuit layouts
var ErrLayoutMismatch = errors.New("row usage layout mismatch")

// SubCircuitRowUsage is the number of rows consumed in one sub-circuit
type SubCircuitRowUsage struct {
	Name      string `json:"name"`
	RowNumber uint64 `json:"row_number"`
}

// RowUsage accumulates the rows consumed per sub-circuit. RowNumber is the fullest entry,
// IsOk reports whether every entry is still below its limit.
type RowUsage struct {
	IsOk            bool                 `json:"is_ok"`
	RowNumber       uint64               `json:"row_number"`
	RowUsageDetails []SubCircuitRowUsage `json:"row_usage_details"`

	limits []uint64
}

// Add sums other into r entry-wise
func (r *RowUsage) Add(other *RowUsage) error {
	if other == nil {
		return nil
	}
	if len(r.RowUsageDetails) != len(other.RowUsageDetails) {
		return fmt.Errorf("%w: %d entries vs %d entries",
			ErrLayoutMismatch, len(r.RowUsageDetails), len(other.RowUsageDetails))
	}
	for i := range r.RowUsageDetails {
		if r.RowUsageDetails[i].Name != other.RowUsageDetails[i].Name {
			return fmt.Errorf("%w: entry %d is %q vs %q",
				ErrLayoutMismatch, i, r.RowUsageDetails[i].Name, other.RowUsageDetails[i].Name)
		}
	}
	for i := range r.RowUsageDetails {
		r.RowUsageDetails[i].RowNumber += other.RowUsageDetails[i].RowNumber
	}
	r.update()
	return nil
}

// Sum returns a new RowUsage with the entry-wise sum of a and b
func Sum(a, b *RowUsage) (*RowUsage, error) {
	res := a.Clone()
	if err := res.Add(b); err != nil {
		return nil, err
	}
	return res, nil
}

// Normalize maps every entry to the [0, NormalizedLimit] scale against its own limit,
// so entries of heterogeneous sub-circuits can be compared with each other
func (r *RowUsage) Normalize() *RowUsage {
	res := &RowUsage{
		RowUsageDetails: make([]SubCircuitRowUsage, len(r.RowUsageDetails)),
		limits:          make([]uint64, len(r.RowUsageDetails)),
	}
	for i, d := range r.RowUsageDetails {
		res.RowUsageDetails[i].Name = d.Name
		res.RowUsageDetails[i].RowNumber = normalize(d.RowNumber, r.limit(i))
		res.limits[i] = NormalizedLimit
	}
	res.update()
	return res
}

func normalize(rows, limit uint64) uint64 {
	if limit == 0 {
		return NormalizedLimit
	}
	hi, lo := bits.Mul64(rows, NormalizedLimit)
	if hi >= limit {
		return math.MaxUint64
	}
	q, _ := bits.Div64(hi, lo, limit)
	return q
}

// Clone returns a deep copy
func (r *RowUsage) Clone() *RowUsage {
	res := &RowUsage{
		IsOk:            r.IsOk,
		RowNumber:       r.RowNumber,
		RowUsageDetails: make([]SubCircuitRowUsage, len(r.RowUsageDetails)),
		limits:          make([]uint64, len(r.limits)),
	}
	copy(res.RowUsageDetails, r.RowUsageDetails)
	copy(res.limits, r.limits)
	return res
}

// Get returns the rows used by the named sub-circuit
func (r *RowUsage) Get(name string) (uint64, bool) {
	for _, d := range r.RowUsageDetails {
		if d.Name == name {
			return d.RowNumber, true
		}
	}
	return 0, false
}

// Exceeded returns the names of the sub-circuits at or above their limit
func (r *RowUsage) Exceeded() []string {
	var res []string
	for i, d := range r.RowUsageDetails {
		if d.RowNumber >= r.limit(i) {
			res = append(res, d.Name)
		}
	}
	return res
}

// String is used for logging
func (r *RowUsage) String() string {
	return fmt.Sprintf("RowUsage{IsOk: %t, RowNumber: %d, Exceeded: %v}", r.IsOk, r.RowNumber, r.Exceeded())
}

// limit of entry i; a RowUsage decoded from JSON carries no limits and is checked against NormalizedLimit
func (r *RowUsage) limit(i int) uint64 {
	if i < len(r.limits) {
		return r.limits[i]
	}
	return NormalizedLimit
}

func (r *RowUsage) update() {
	r.RowNumber = 0
	r.IsOk = true
	for i, d := range r.RowUsageDetails {
		if d.RowNumber > r.RowNumber {
			r.RowNumber = d.RowNumber
		}
		if d.RowNumber >= r.limit(i) {
			r.IsOk = false
		}
	}
}
