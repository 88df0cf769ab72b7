// Gated multi-metric distance cascade. Distances are evaluated in order and
// the evaluation short-circuits once a threshold fails, keys with a positive
// threshold are always evaluated so the weighted sum stays defined.
package cascade

import (
	"fmt"
	"log/slog"
	"math"
	"slices"
	"time"

	"github.com/Robogera/trackassign/pkg/distance"
	"github.com/Robogera/trackassign/pkg/errs"
)

// Mapped value of one entity per distance key
type Mapped map[string]any

type Options struct {
	Distances  distance.Set
	Order      []string
	Thresholds map[string]float64
	// missing lambdas weigh 1
	Lambdas map[string]float64
	Logger  *slog.Logger
	// distances slower than this are logged, 0 disables
	SlowDistance time.Duration
	// goroutines used by the mapping and pair evaluation, <= 1 is sequential
	Workers int
}

// Outcome of the cascade for one pair
type Details struct {
	Passed bool
	Values map[string]float64
	Spent  map[string]time.Duration
}

func (o *Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

// Keys of order with a strictly positive threshold
func MandatoryKeys(order []string, thresholds map[string]float64) []string {
	mandatory := make([]string, 0, len(order))
	for _, key := range order {
		if threshold, ok := thresholds[key]; ok && threshold > 0 {
			mandatory = append(mandatory, key)
		}
	}
	return mandatory
}

func GetDistances(a, b Mapped, o *Options, mandatory []string) (Details, error) {
	details := Details{
		Passed: true,
		Values: make(map[string]float64, len(o.Order)),
		Spent:  make(map[string]time.Duration, len(o.Order)),
	}
	keep_going := true
	for _, key := range o.Order {
		if !keep_going && !slices.Contains(mandatory, key) {
			continue
		}
		module, ok := o.Distances[key]
		if !ok {
			return details, fmt.Errorf("No distance module for %q. Error: %w", key, errs.ERR_CONFIGURATION)
		}
		start := time.Now()
		value, err := module.Fn(a[key], b[key])
		spent := time.Since(start)
		if err != nil {
			return details, fmt.Errorf("Distance %q failed. Error: %w", key, err)
		}
		if math.IsNaN(value) {
			return details, fmt.Errorf("Distance %q returned NaN. Error: %w", key, errs.ERR_INVARIANT)
		}
		if o.SlowDistance > 0 && spent > o.SlowDistance {
			o.logger().Debug("Slow distance", "key", key, "spent", spent)
		}
		details.Values[key] = value
		details.Spent[key] = spent
		if threshold, ok := o.Thresholds[key]; ok && value >= threshold {
			details.Passed = false
			keep_going = false
		}
	}
	return details, nil
}

// Weighted sum of values over keys
func LambdaSum(keys []string, values map[string]float64, lambdas map[string]float64) (float64, error) {
	var sum float64
	for _, key := range keys {
		value, ok := values[key]
		if !ok {
			return 0, fmt.Errorf("No value computed for %q. Error: %w", key, errs.ERR_INVARIANT)
		}
		lambda, ok := lambdas[key]
		if !ok {
			lambda = 1
		}
		sum += lambda * value
	}
	if math.IsNaN(sum) {
		return 0, fmt.Errorf("Weighted sum of %v is NaN. Error: %w", keys, errs.ERR_INVARIANT)
	}
	return sum, nil
}
