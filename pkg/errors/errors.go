// Package errors はプロジェクト全体のエラーハンドリングと警告システムを提供します。
// ビニング・特徴グループ・データセット層で共通して使う構造化エラー型を定義します。
package errors

import (
	"fmt"
	"log"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// ===========================================================================
//
//	グローバル警告ハンドリング
//
// ===========================================================================
var (
	warningMutex   sync.Mutex
	warningHandler = func(w error) {
		// デフォルトのハンドラは標準エラー出力にログを出す
		log.Printf("featbin-Warning: %v\n", w)
	}
	// zerologロガー（循環importを避けるため遅延初期化）
	zerologWarnFunc func(warning error)
)

// SetWarningHandler はライブラリ全体の警告ハンドラを設定します。
//
// 例:
//
//	errors.SetWarningHandler(func(w error) {
//	    // 警告を無視する
//	})
func SetWarningHandler(handler func(w error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	warningHandler = handler
}

// SetZerologWarnFunc はzerolog警告関数を設定します（循環importを避けるため）。
func SetZerologWarnFunc(warnFunc func(warning error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	zerologWarnFunc = warnFunc
}

// Warn は警告を発生させます。
// zerologが設定されている場合は構造化ログとして出力し、そうでなければ従来のハンドラを使用します。
func Warn(w error) {
	warningMutex.Lock()
	defer warningMutex.Unlock()

	if zerologWarnFunc != nil {
		zerologWarnFunc(w)
		return
	}

	if warningHandler != nil {
		warningHandler(w)
	}
}

// ===========================================================================
//
//	警告型
//
// ===========================================================================

// TrivialFeatureWarning は特徴量が1つのビンしか持たない場合の警告です。
// そのような特徴量は分割に使えません。
type TrivialFeatureWarning struct {
	Feature int
	Reason  string
}

func (w *TrivialFeatureWarning) Error() string {
	return fmt.Sprintf("feature %d is trivial and cannot be split: %s", w.Feature, w.Reason)
}

// MarshalZerologObject はzerologのイベントに構造化された警告情報を追加します。
func (w *TrivialFeatureWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Int("feature", w.Feature).
		Str("reason", w.Reason).
		Str("type", "TrivialFeatureWarning")
}

// NewTrivialFeatureWarning は新しいTrivialFeatureWarningを作成します。
func NewTrivialFeatureWarning(feature int, reason string) *TrivialFeatureWarning {
	return &TrivialFeatureWarning{Feature: feature, Reason: reason}
}

// ===========================================================================
//
//	構造化されたエラー型
//
// ===========================================================================

// DimensionError は入力データの次元が期待値と異なる場合のエラーです。
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int // 0 for rows, 1 for columns/features
}

func (e *DimensionError) Error() string {
	axisName := "features"
	if e.Axis == 0 {
		axisName = "rows"
	}
	return fmt.Sprintf("featbin: %s: dimension mismatch on axis %d (%s). Expected %d, got %d", e.Op, e.Axis, axisName, e.Expected, e.Got)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *DimensionError) MarshalZerologObject(event *zerolog.Event) {
	axisName := "features"
	if e.Axis == 0 {
		axisName = "rows"
	}
	event.Str("operation", e.Op).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Int("axis", e.Axis).
		Str("axis_name", axisName).
		Str("type", "DimensionError")
}

// NewDimensionError は新しいDimensionErrorを作成し、スタックトレースを付与します。
func NewDimensionError(op string, expected, got, axis int) error {
	err := &DimensionError{Op: op, Expected: expected, Got: got, Axis: axis}
	return errors.WithStack(err)
}

// ValidationError は入力パラメータの検証に失敗した場合のエラーです。
type ValidationError struct {
	ParamName string
	Reason    string
	Value     interface{}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("featbin: validation failed for parameter '%s': %s (got: %v)", e.ParamName, e.Reason, e.Value)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *ValidationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("param_name", e.ParamName).
		Str("reason", e.Reason).
		Interface("value", e.Value).
		Str("type", "ValidationError")
}

// NewValidationError は新しいValidationErrorを作成し、スタックトレースを付与します。
func NewValidationError(param, reason string, value interface{}) error {
	err := &ValidationError{ParamName: param, Reason: reason, Value: value}
	return errors.WithStack(err)
}

// ValueError は引数の値が不適切または不正な場合に発生するエラーです。
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("featbin: %s: %s", e.Op, e.Message)
}

// NewValueError は新しいValueErrorを作成し、スタックトレースを付与します。
func NewValueError(op, message string) error {
	err := &ValueError{Op: op, Message: message}
	return errors.WithStack(err)
}

// CorruptDataError はシリアライズされたバイト列が短すぎる、または壊れている場合のエラーです。
// 検査付きデコード経路でのみ返されます。
type CorruptDataError struct {
	Op     string
	Offset int
	Need   int
	Have   int
}

func (e *CorruptDataError) Error() string {
	return fmt.Sprintf("featbin: %s: corrupt or short buffer at offset %d (need %d bytes, have %d)", e.Op, e.Offset, e.Need, e.Have)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *CorruptDataError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Int("offset", e.Offset).
		Int("need", e.Need).
		Int("have", e.Have).
		Str("type", "CorruptDataError")
}

// NewCorruptDataError は新しいCorruptDataErrorを作成し、スタックトレースを付与します。
func NewCorruptDataError(op string, offset, need, have int) error {
	err := &CorruptDataError{Op: op, Offset: offset, Need: need, Have: have}
	return errors.WithStack(err)
}

// FinalizeError は特徴量単位のFinishLoadが失敗した場合のエラーです。
// 並列ファイナライズでは全ユニットの完了後にまとめて報告されます。
type FinalizeError struct {
	Feature int
	Err     error
}

func (e *FinalizeError) Error() string {
	return fmt.Sprintf("featbin: finish load of feature %d: %v", e.Feature, e.Err)
}

func (e *FinalizeError) Unwrap() error {
	return e.Err
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *FinalizeError) MarshalZerologObject(event *zerolog.Event) {
	event.Int("feature", e.Feature).
		AnErr("cause", e.Err).
		Str("type", "FinalizeError")
}

// NewFinalizeError は新しいFinalizeErrorを作成し、スタックトレースを付与します。
func NewFinalizeError(feature int, err error) error {
	return errors.WithStack(&FinalizeError{Feature: feature, Err: err})
}

// ===========================================================================
//
//	cockroachdb/errors ラッパー関数
//
// ===========================================================================

// Is はエラーが特定のターゲットエラーかどうかを判定します。
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As はエラーが特定の型にキャスト可能かどうかを判定します。
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap は既存のエラーをメッセージ付きでラップします。
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf は既存のエラーをフォーマット文字列でラップします。
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New は新しいエラーを作成します。
func New(message string) error {
	return errors.New(message)
}

// Newf は新しいフォーマット済みエラーを作成します。
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack はエラーにスタックトレースを付与します。
func WithStack(err error) error {
	return errors.WithStack(err)
}

// Join は複数のエラーを1つにまとめます。nilは無視され、全てnilならnilを返します。
func Join(errs ...error) error {
	return errors.Join(errs...)
}

// ===========================================================================
//
//	共通エラー変数
//
// ===========================================================================

var (
	// ErrNotImplemented は機能が未実装の場合のエラーです。
	ErrNotImplemented = New("not implemented")

	// ErrEmptyData は空のデータが渡された場合のエラーです。
	ErrEmptyData = New("empty data")

	// ErrDuplicateRow は同じ行に2回書き込まれた場合のエラーです。
	ErrDuplicateRow = New("duplicate row in bin data")
)
