package metrics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/sciguard/pkg/errors"
)

// rankedPair は予測スコアと正解の関連度の組
type rankedPair = struct {
	score     float64
	relevance float64
}

// NDCG は正規化減損累積利得（Normalized Discounted Cumulative Gain）を計算する。
// k <= -1 の場合は全要素を対象とする。関連度はすべて非負でなければならない。
// 関連度がすべて0の場合は0を返す。
func NDCG(yTrue, yPred *mat.VecDense, k int) (float64, error) {
	n, err := checkPair("NDCG", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	if k == 0 || k < -1 {
		return 0, errors.NewValidationError("k", "must be positive or -1", k)
	}
	if k == -1 || k > n {
		k = n
	}

	pairs := make([]rankedPair, n)
	for i := 0; i < n; i++ {
		rel := yTrue.AtVec(i)
		if rel < 0 {
			return 0, errors.NewValueError("NDCG", "relevance must be non-negative")
		}
		pairs[i] = rankedPair{score: yPred.AtVec(i), relevance: rel}
	}

	// 予測スコア降順
	sort.SliceStable(pairs, func(a, b int) bool { return pairs[a].score > pairs[b].score })
	actual := dcg(pairs, k)

	// 理想順序（関連度降順）
	sort.SliceStable(pairs, func(a, b int) bool { return pairs[a].relevance > pairs[b].relevance })
	ideal := dcg(pairs, k)

	if ideal == 0 {
		return 0, nil
	}
	return actual / ideal, nil
}

// dcg は与えられた順序のまま上位k件のDCGを計算する
func dcg(pairs []rankedPair, k int) float64 {
	var sum float64
	for i := 0; i < k && i < len(pairs); i++ {
		gain := math.Pow(2, pairs[i].relevance) - 1
		sum += gain / math.Log2(float64(i+2))
	}
	return sum
}

// AveragePrecision は平均適合率を計算する。yTrueは0/1の二値ラベル。
// 関連アイテムが存在しない場合は0を返す。
func AveragePrecision(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("AveragePrecision", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	if err := checkBinary("AveragePrecision", yTrue); err != nil {
		return 0, err
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return yPred.AtVec(order[a]) > yPred.AtVec(order[b]) })

	var hits, sumPrecision float64
	for rank, i := range order {
		if yTrue.AtVec(i) == 1 {
			hits++
			sumPrecision += hits / float64(rank+1)
		}
	}
	if hits == 0 {
		return 0, nil
	}
	return sumPrecision / hits, nil
}
