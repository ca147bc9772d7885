// Package preprocessing は生の特徴量を学習用の表現に変換する前処理を提供する
package preprocessing

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/featbin/bin"
	"github.com/YuminosukeSato/featbin/core/parallel"
	scierrors "github.com/YuminosukeSato/featbin/pkg/errors"
)

// BinDiscretizer は特徴量ごとにBinMapperを学習し、生の値をビンIDに変換する
type BinDiscretizer struct {
	// MaxBin は特徴量あたりのビン数の上限 (デフォルト: 255)
	MaxBin int

	// Categorical はカテゴリ特徴量として扱う列
	Categorical map[int]bool

	// UseMissing は欠損値ポリシー (NaN / ゼロ) を有効にするかどうか
	UseMissing bool

	// ZeroAsMissing はゼロを欠損値として扱うかどうか
	ZeroAsMissing bool

	mappers []*bin.BinMapper
}

// NewBinDiscretizer は新しいBinDiscretizerを作成する
//
// パラメータ:
//   - maxBin: 特徴量あたりのビン数の上限
//   - useMissing: 欠損値ポリシーを有効にするかどうか
//   - zeroAsMissing: ゼロを欠損値として扱うかどうか
//   - categorical: カテゴリ特徴量の列インデックス
//
// 使用例:
//
//	d := preprocessing.NewBinDiscretizer(63, true, false, 2)
//	err := d.Fit(X)
//	bins, err := d.Transform(X)
func NewBinDiscretizer(maxBin int, useMissing, zeroAsMissing bool, categorical ...int) *BinDiscretizer {
	cats := make(map[int]bool, len(categorical))
	for _, c := range categorical {
		cats[c] = true
	}
	return &BinDiscretizer{
		MaxBin:        maxBin,
		Categorical:   cats,
		UseMissing:    useMissing,
		ZeroAsMissing: zeroAsMissing,
	}
}

// NewBinDiscretizerDefault はデフォルト設定でBinDiscretizerを作成する
func NewBinDiscretizerDefault() *BinDiscretizer {
	return NewBinDiscretizer(255, true, false)
}

// Fit は列ごとにBinMapperを並列に学習する。失敗した列はすべてまとめて返される。
func (d *BinDiscretizer) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return scierrors.Wrap(scierrors.ErrEmptyData, "BinDiscretizer.Fit")
	}

	mappers := make([]*bin.BinMapper, c)
	err := parallel.RunAll(c, func(f int) error {
		params := bin.FitParams{
			Feature:       f,
			MaxBin:        d.MaxBin,
			UseMissing:    d.UseMissing,
			ZeroAsMissing: d.ZeroAsMissing,
		}
		if d.Categorical[f] {
			params.BinType = bin.CategoricalBin
		}
		m, err := bin.FitBinMapper(mat.Col(nil, f, X), params)
		if err != nil {
			return err
		}
		mappers[f] = m
		return nil
	}, func(f int, err error) error {
		return scierrors.Wrapf(err, "fit bin mapper of feature %d", f)
	})
	if err != nil {
		return err
	}
	d.mappers = mappers
	return nil
}

// IsFitted はFitが完了しているかどうかを返す
func (d *BinDiscretizer) IsFitted() bool { return d.mappers != nil }

// NFeatures は学習した特徴量の数を返す
func (d *BinDiscretizer) NFeatures() int { return len(d.mappers) }

// Mappers は学習済みのBinMapperを列順に返す
func (d *BinDiscretizer) Mappers() []*bin.BinMapper { return d.mappers }

// Transform は各値をビンIDに変換する
func (d *BinDiscretizer) Transform(X mat.Matrix) (mat.Matrix, error) {
	if err := d.check("BinDiscretizer.Transform", X); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	result := mat.NewDense(r, c, nil)
	for j, m := range d.mappers {
		for i := 0; i < r; i++ {
			result.Set(i, j, float64(m.ValueToBin(X.At(i, j))))
		}
	}
	return result, nil
}

// FitTransform は学習と変換を続けて行う
func (d *BinDiscretizer) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := d.Fit(X); err != nil {
		return nil, err
	}
	return d.Transform(X)
}

// InverseTransform はビンIDを代表値に戻す。数値特徴量はビンの上限、
// カテゴリ特徴量はカテゴリ値になる。
func (d *BinDiscretizer) InverseTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := d.check("BinDiscretizer.InverseTransform", X); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	result := mat.NewDense(r, c, nil)
	for j, m := range d.mappers {
		for i := 0; i < r; i++ {
			v := X.At(i, j)
			if v < 0 || v >= float64(m.NumBin()) || v != math.Trunc(v) {
				return nil, scierrors.NewValidationError("bin", fmt.Sprintf("not a bin id of feature %d", j), v)
			}
			result.Set(i, j, m.BinToValue(uint32(v)))
		}
	}
	return result, nil
}

func (d *BinDiscretizer) check(op string, X mat.Matrix) error {
	if !d.IsFitted() {
		return scierrors.NewValueError(op, "discretizer is not fitted")
	}
	if _, c := X.Dims(); c != len(d.mappers) {
		return scierrors.NewDimensionError(op, len(d.mappers), c, 1)
	}
	return nil
}

// String は文字列表現を返す
func (d *BinDiscretizer) String() string {
	if !d.IsFitted() {
		return fmt.Sprintf("BinDiscretizer(max_bin=%d)", d.MaxBin)
	}
	return fmt.Sprintf("BinDiscretizer(max_bin=%d, n_features=%d)", d.MaxBin, len(d.mappers))
}
