package metrics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/sciguard/pkg/errors"
)

// logLossEps はlog(0)を避けるための確率のクリップ幅
const logLossEps = 1e-15

// Accuracy は正解率を計算する
func Accuracy(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("Accuracy", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	correct := 0
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == yPred.AtVec(i) {
			correct++
		}
	}
	return float64(correct) / float64(n), nil
}

// ClassificationError は誤分類率（1 - Accuracy）を計算する
func ClassificationError(yTrue, yPred *mat.VecDense) (float64, error) {
	acc, err := Accuracy(yTrue, yPred)
	if err != nil {
		return 0, errors.Wrap(err, "ClassificationError")
	}
	return 1 - acc, nil
}

// AUC はROC曲線下面積を計算する。
// 正例スコアが負例スコアを上回る確率として求め、同点は0.5として数える。
// ラベルが一種類しかない場合はUndefinedMetricWarningを発生させ0.5を返す。
func AUC(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("AUC", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	if err := checkBinary("AUC", yTrue); err != nil {
		return 0, err
	}

	// スコア昇順に並べ、同点グループには平均順位を与える（Mann-Whitney U）
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return yPred.AtVec(idx[a]) < yPred.AtVec(idx[b]) })

	var nPos, nNeg, rankSumPos float64
	for start := 0; start < n; {
		end := start
		for end+1 < n && yPred.AtVec(idx[end+1]) == yPred.AtVec(idx[start]) {
			end++
		}
		avgRank := float64(start+end)/2 + 1
		for k := start; k <= end; k++ {
			if yTrue.AtVec(idx[k]) == 1 {
				rankSumPos += avgRank
				nPos++
			} else {
				nNeg++
			}
		}
		start = end + 1
	}

	if nPos == 0 || nNeg == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("AUC", "only one class present in yTrue", 0.5))
		return 0.5, nil
	}

	u := rankSumPos - nPos*(nPos+1)/2
	return u / (nPos * nNeg), nil
}

// LogLoss は多クラスの対数損失を計算する。
// yTrueはクラス番号（probaの列番号）、probaは各クラスの予測確率。
func LogLoss(yTrue *mat.VecDense, proba mat.Matrix) (float64, error) {
	losses, err := PerSampleLogLoss(yTrue, proba)
	if err != nil {
		return 0, err
	}
	var sum float64
	for _, l := range losses {
		sum += l
	}
	return sum / float64(len(losses)), nil
}

// PerSampleLogLoss はサンプルごとの -log(p_true) を返す（p_trueは1e-15でクリップ）
func PerSampleLogLoss(yTrue *mat.VecDense, proba mat.Matrix) ([]float64, error) {
	if yTrue == nil || yTrue.IsEmpty() || proba == nil {
		return nil, errors.NewValueError("PerSampleLogLoss", "empty input")
	}
	n := yTrue.Len()
	r, c := proba.Dims()
	if r != n {
		return nil, errors.NewDimensionError("PerSampleLogLoss", n, r, 0)
	}

	losses := make([]float64, n)
	for i := 0; i < n; i++ {
		label := yTrue.AtVec(i)
		cls := int(label)
		if cls < 0 || cls >= c || float64(cls) != label {
			return nil, errors.NewValidationError("yTrue", "label is not a valid class index", label)
		}
		p := errors.ClipValue(proba.At(i, cls), logLossEps, 1)
		losses[i] = -math.Log(p)
	}
	return losses, nil
}

func checkBinary(op string, y *mat.VecDense) error {
	for i := 0; i < y.Len(); i++ {
		if v := y.AtVec(i); v != 0 && v != 1 {
			return errors.NewValueError(op, "yTrue must contain only binary labels (0 or 1)")
		}
	}
	return nil
}
