package errors

import (
	"fmt"
	"runtime/debug"
)

// PanicError はユーザー提供のコールバック（カスタムスコアラー、損失関数など）で
// 発生したpanicを回収し、エラーとして扱えるようにしたものです。
type PanicError struct {
	// PanicValue はpanic()に渡された値
	PanicValue interface{}
	// StackTrace はpanic発生時のスタックトレース
	StackTrace string
	// Operation はpanicを回収した処理の名前
	Operation string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic in %s: %v", e.Operation, e.PanicValue)
}

// Unwrap はpanic値がerrorだった場合にそれを返します。
func (e *PanicError) Unwrap() error {
	if err, ok := e.PanicValue.(error); ok {
		return err
	}
	return nil
}

// String はスタックトレースを含む詳細な情報を返します。
func (e *PanicError) String() string {
	return fmt.Sprintf("%s\nStack trace:\n%s", e.Error(), e.StackTrace)
}

// NewPanicError は現在のスタックトレースを付与したPanicErrorを作成します。
func NewPanicError(operation string, panicValue interface{}) *PanicError {
	return &PanicError{
		PanicValue: panicValue,
		StackTrace: string(debug.Stack()),
		Operation:  operation,
	}
}

// Recover はdeferと組み合わせて使い、panicをエラーに変換します。
//
//	func (s *customScorer) Score(...) (score float64, err error) {
//	    defer errors.Recover(&err, "customScorer.Score")
//	    ...
//	}
//
// 既にエラーが設定されている場合は、元のエラーをラップします。
func Recover(err *error, operation string) {
	r := recover()
	if r == nil {
		return
	}
	if *err != nil {
		*err = fmt.Errorf("panic in %s: %v (original error: %w)", operation, r, *err)
		return
	}
	*err = NewPanicError(operation, r)
}

// SafeExecute はfnを実行し、panicが発生した場合はPanicErrorとして返します。
func SafeExecute(operation string, fn func() error) (err error) {
	defer Recover(&err, operation)
	return fn()
}
