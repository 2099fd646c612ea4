package model

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

// TestAPIError_Error はエラー文字列の形式を検証する。
func TestAPIError_Error(t *testing.T) {
	err := NewAlreadyFriendsError()

	msg := err.Error()
	if msg == "" {
		t.Fatal("Error() が空文字を返した")
	}
}

// TestAPIError_ErrorsAs はラップ越しにAPIErrorを取り出せることを検証する。
func TestAPIError_ErrorsAs(t *testing.T) {
	wrapped := fmt.Errorf("サービス呼び出しに失敗: %w", NewUserNotFoundError())

	var apiErr *APIError
	if !errors.As(wrapped, &apiErr) {
		t.Fatal("ラップされたAPIErrorをerrors.Asで取り出せるべき")
	}
	if apiErr.Code != ErrCodeUserNotFound {
		t.Errorf("Code = %q, want %q", apiErr.Code, ErrCodeUserNotFound)
	}
}

// TestNewMembersNotFoundError_ListsIDs は実在しないIDの列挙を検証する。
func TestNewMembersNotFoundError_ListsIDs(t *testing.T) {
	err := NewMembersNotFoundError([]string{"user-1", "user-2"})

	if err.Code != ErrCodeMembersNotFound {
		t.Errorf("Code = %q, want %q", err.Code, ErrCodeMembersNotFound)
	}
	for _, id := range []string{"user-1", "user-2"} {
		if !strings.Contains(err.Message, id) {
			t.Errorf("Message に %q が含まれるべき: %q", id, err.Message)
		}
	}
}
