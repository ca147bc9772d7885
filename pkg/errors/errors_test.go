package errors

import (
	"fmt"
	"strings"
	"testing"
)

func TestNewDimensionError(t *testing.T) {
	err := NewDimensionError("featuregroup.New", 3, 2, 1)

	// 基本的なエラーメッセージの確認
	want := "featbin: featuregroup.New: dimension mismatch on axis 1 (features). Expected 3, got 2"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	// DimensionError型にキャスト可能か確認
	var dimErr *DimensionError
	if !As(err, &dimErr) {
		t.Fatal("Error should be castable to *DimensionError")
	}
	if dimErr.Expected != 3 || dimErr.Got != 2 {
		t.Errorf("unexpected fields: %+v", dimErr)
	}

	// スタックトレースの存在確認
	formatted := fmt.Sprintf("%+v", err)
	if !strings.Contains(formatted, "errors_test.go") {
		t.Error("Expected stack trace to contain test file name")
	}
}

func TestNewValidationError(t *testing.T) {
	err := NewValidationError("bin_mappers", "length must equal num_feature", 4)

	want := "featbin: validation failed for parameter 'bin_mappers': length must equal num_feature (got: 4)"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	var valErr *ValidationError
	if !As(err, &valErr) {
		t.Error("Error should be castable to *ValidationError")
	}
}

func TestNewValueError(t *testing.T) {
	tests := []struct {
		name    string
		op      string
		message string
		wantMsg string
	}{
		{
			name:    "bin count",
			op:      "FitBinMapper",
			message: "max_bin: 1 (must be at least 2)",
			wantMsg: "featbin: FitBinMapper: max_bin: 1 (must be at least 2)",
		},
		{
			name:    "empty message",
			op:      "CreateDenseBin",
			message: "",
			wantMsg: "featbin: CreateDenseBin: ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewValueError(tt.op, tt.message)
			if err.Error() != tt.wantMsg {
				t.Errorf("Error() = %v, want %v", err.Error(), tt.wantMsg)
			}

			// ValueError型にキャスト可能か確認
			var valErr *ValueError
			if !As(err, &valErr) {
				t.Error("Error should be castable to *ValueError")
			}
		})
	}
}

func TestNewCorruptDataError(t *testing.T) {
	err := NewCorruptDataError("binio.Reader", 6, 4, 2)

	want := "featbin: binio.Reader: corrupt or short buffer at offset 6 (need 4 bytes, have 2)"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	var corrupt *CorruptDataError
	if !As(err, &corrupt) {
		t.Error("Error should be castable to *CorruptDataError")
	}
}

func TestFinalizeErrorUnwrap(t *testing.T) {
	err := NewFinalizeError(2, ErrDuplicateRow)

	if !Is(err, ErrDuplicateRow) {
		t.Error("Expected Is(err, ErrDuplicateRow) to be true")
	}

	var finErr *FinalizeError
	if !As(err, &finErr) {
		t.Fatal("Error should be castable to *FinalizeError")
	}
	if finErr.Feature != 2 {
		t.Errorf("Feature = %d, want 2", finErr.Feature)
	}
}

func TestJoinKeepsEveryError(t *testing.T) {
	errA := NewFinalizeError(0, New("first"))
	errB := NewFinalizeError(3, ErrDuplicateRow)

	joined := Join(errA, nil, errB)
	if joined == nil {
		t.Fatal("Expected non-nil joined error")
	}
	if !Is(joined, ErrDuplicateRow) {
		t.Error("Expected joined error to contain ErrDuplicateRow")
	}
	if !strings.Contains(joined.Error(), "first") {
		t.Errorf("Expected joined message to contain first error: %s", joined.Error())
	}

	if Join(nil, nil) != nil {
		t.Error("Join of nil errors should be nil")
	}
}

func TestNewTrivialFeatureWarning(t *testing.T) {
	warn := NewTrivialFeatureWarning(7, "only one distinct value")

	want := "feature 7 is trivial and cannot be split: only one distinct value"
	if warn.Error() != want {
		t.Errorf("Error() = %v, want %v", warn.Error(), want)
	}
}

func TestWarnUsesHandler(t *testing.T) {
	var got error
	SetWarningHandler(func(w error) { got = w })
	defer SetWarningHandler(func(w error) {})

	w := NewTrivialFeatureWarning(1, "constant")
	Warn(w)

	if got != w {
		t.Errorf("handler received %v, want %v", got, w)
	}
}

func TestWrapAndIs(t *testing.T) {
	// 元のエラー
	baseErr := ErrNotImplemented

	// ラップ
	wrapped := Wrap(baseErr, "in sparseBin.ReSize")

	// Is関数でチェック
	if !Is(wrapped, ErrNotImplemented) {
		t.Error("Expected Is(wrapped, ErrNotImplemented) to be true")
	}

	if !strings.Contains(wrapped.Error(), "in sparseBin.ReSize") {
		t.Error("Expected wrapped error to contain wrapping message")
	}
}

func TestWrapf(t *testing.T) {
	baseErr := ErrEmptyData

	// フォーマット付きラップ
	wrapped := Wrapf(baseErr, "in %s: expected %d, got %d", "FromMatrix", 10, 0)

	if !Is(wrapped, ErrEmptyData) {
		t.Error("Expected Is(wrapped, ErrEmptyData) to be true")
	}

	expectedMsg := "in FromMatrix: expected 10, got 0"
	if !strings.Contains(wrapped.Error(), expectedMsg) {
		t.Errorf("Expected wrapped error to contain %q", expectedMsg)
	}
}
