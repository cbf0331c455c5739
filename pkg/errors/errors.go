// Package errors はdemandcast全体のエラーハンドリングを提供します。
// cockroachdb/errors をベースに、推論パイプラインで発生するエラーを構造化された型として表現します。
package errors

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// ===========================================================================
//
//	推論パイプラインのエラー型
//
// ===========================================================================

// ArtifactLoadError はモデルアーティファクトの読み込みまたはデシリアライズに失敗した場合のエラーです。
// 原因となったIO/パースエラーを Unwrap で取り出せます。
type ArtifactLoadError struct {
	Path   string
	Format string // 判定できた場合のみ ("text", "json", "gob")
	Err    error
}

func (e *ArtifactLoadError) Error() string {
	if e.Format != "" {
		return fmt.Sprintf("demandcast: failed to load %s artifact %q: %v", e.Format, e.Path, e.Err)
	}
	return fmt.Sprintf("demandcast: failed to load artifact %q: %v", e.Path, e.Err)
}

func (e *ArtifactLoadError) Unwrap() error {
	return e.Err
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *ArtifactLoadError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("path", e.Path).
		Str("format", e.Format).
		AnErr("cause", e.Err).
		Str("type", "ArtifactLoadError")
}

// NewArtifactLoadError は新しいArtifactLoadErrorを作成し、スタックトレースを付与します。
func NewArtifactLoadError(path, format string, err error) error {
	return errors.WithStack(&ArtifactLoadError{Path: path, Format: format, Err: err})
}

// SchemaValidationError は必須の特徴量カラムがデータセットに存在しない場合のエラーです。
// Missing は「必須カラム − データセットのカラム」をソート済み・重複なしで保持します。
type SchemaValidationError struct {
	Op      string
	Missing []string
}

func (e *SchemaValidationError) Error() string {
	return fmt.Sprintf("demandcast: %s: missing columns in input data: [%s]", e.Op, strings.Join(e.Missing, ", "))
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *SchemaValidationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Strs("missing", e.Missing).
		Str("type", "SchemaValidationError")
}

// NewSchemaValidationError は新しいSchemaValidationErrorを作成し、スタックトレースを付与します。
// missing は呼び出し側の順序に関わらずソート・重複排除されます。
func NewSchemaValidationError(op string, missing []string) error {
	seen := make(map[string]struct{}, len(missing))
	uniq := make([]string, 0, len(missing))
	for _, name := range missing {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		uniq = append(uniq, name)
	}
	sort.Strings(uniq)
	return errors.WithStack(&SchemaValidationError{Op: op, Missing: uniq})
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
	return fmt.Sprintf("demandcast: %s: dimension mismatch on axis %d (%s). Expected %d, got %d", e.Op, e.Axis, e.axisName(), e.Expected, e.Got)
}

func (e *DimensionError) axisName() string {
	if e.Axis == 0 {
		return "rows"
	}
	return "features"
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *DimensionError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Int("axis", e.Axis).
		Str("axis_name", e.axisName()).
		Str("type", "DimensionError")
}

// NewDimensionError は新しいDimensionErrorを作成し、スタックトレースを付与します。
func NewDimensionError(op string, expected, got, axis int) error {
	return errors.WithStack(&DimensionError{Op: op, Expected: expected, Got: got, Axis: axis})
}

// ValidationError は入力パラメータの検証に失敗した場合のエラーです。
type ValidationError struct {
	ParamName string
	Reason    string
	Value     interface{}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("demandcast: validation failed for parameter '%s': %s (got: %v)", e.ParamName, e.Reason, e.Value)
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
	return errors.WithStack(&ValidationError{ParamName: param, Reason: reason, Value: value})
}

// ValueError は引数の値が不適切または不正な場合に発生するエラーです。
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("demandcast: %s: %s", e.Op, e.Message)
}

// NewValueError は新しいValueErrorを作成し、スタックトレースを付与します。
func NewValueError(op, message string) error {
	return errors.WithStack(&ValueError{Op: op, Message: message})
}

// ModelError はモデルの推論処理に関する一般的なエラーです。
type ModelError struct {
	Op   string
	Kind string
	Err  error
}

func (e *ModelError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("demandcast: %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("demandcast: %s: %s", e.Op, e.Kind)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

// NewModelError は新しいModelErrorを作成し、スタックトレースを付与します。
func NewModelError(op, kind string, err error) error {
	return errors.WithStack(&ModelError{Op: op, Kind: kind, Err: err})
}

// NumericalInstabilityError は特徴量や予測値にNaN/Infが含まれる場合のエラーです。
type NumericalInstabilityError struct {
	Operation string    // 発生した操作（例: "Predict", "InverseTransform"）
	Values    []float64 // 問題のある値
	Row       int       // 最初に検出された行 (-1: 不明)
	Column    string    // 最初に検出されたカラム名（任意）
}

func (e *NumericalInstabilityError) Error() string {
	var sb strings.Builder
	for i, v := range e.Values {
		if i > 0 {
			sb.WriteString(", ")
		}
		if i >= 5 {
			sb.WriteString("...")
			break
		}
		sb.WriteString(fmt.Sprintf("%.6g", v))
	}
	if e.Column != "" {
		return fmt.Sprintf("demandcast: non-finite values detected in %s at row %d column '%s'. Values: [%s]",
			e.Operation, e.Row, e.Column, sb.String())
	}
	return fmt.Sprintf("demandcast: non-finite values detected in %s at row %d. Values: [%s]",
		e.Operation, e.Row, sb.String())
}

// NewNumericalInstabilityError は新しいNumericalInstabilityErrorを作成します。
func NewNumericalInstabilityError(operation string, values []float64, row int, column string) error {
	return errors.WithStack(&NumericalInstabilityError{
		Operation: operation,
		Values:    values,
		Row:       row,
		Column:    column,
	})
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

// ===========================================================================
//
//	共通エラー変数
//
// ===========================================================================

var (
	// ErrEmptyData は空のデータが渡された場合のエラーです。
	ErrEmptyData = New("empty data")

	// ErrUnknownFormat はアーティファクトの形式を判定できない場合のエラーです。
	ErrUnknownFormat = New("unknown artifact format")
)
