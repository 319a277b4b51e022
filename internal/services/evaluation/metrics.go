package evaluation

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/SeekerKids/forecast-prophet-kp/internal/domain/models"
)

// Accuracy computes RMSE, R² and MAPE over aligned actual/predicted pairs.
// Pairs with a non-finite prediction are ignored. MAPE averages only rows
// with a non-zero actual and is nil when there are none. Nil result for no pairs.
func Accuracy(actual, predicted []float64) *models.EvaluationResult {
	var (
		n, apeN       int
		sumSq, apeSum float64
	)
	act := make([]float64, 0, len(actual))
	for i := range actual {
		if i >= len(predicted) {
			break
		}
		a, p := actual[i], predicted[i]
		if math.IsNaN(a) || math.IsNaN(p) || math.IsInf(p, 0) {
			continue
		}
		e := a - p
		sumSq += e * e
		act = append(act, a)
		n++
		if a != 0 {
			apeSum += math.Abs(e / a)
			apeN++
		}
	}
	if n == 0 {
		return nil
	}

	res := &models.EvaluationResult{TestRows: n}
	res.RMSE = models.Float(math.Sqrt(sumSq / float64(n)))

	// population variance times n is the total sum of squares
	ssTot := stat.PopVariance(act, nil) * float64(n)
	switch {
	case ssTot > 0:
		res.R2 = models.Float(1 - sumSq/ssTot)
	case sumSq == 0:
		// constant actuals predicted exactly
		res.R2 = models.Float(1)
	default:
		res.R2 = models.Float(0)
	}

	if apeN > 0 {
		res.MAPE = models.Float(apeSum / float64(apeN) * 100)
	}
	return res
}

var nan = math.NaN()
