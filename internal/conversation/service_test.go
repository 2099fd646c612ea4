package conversation

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/tomolink/internal/model"
	"github.com/hitoshi/tomolink/internal/repository"
)

// --- モック ---

type mockConvRepo struct {
	findByIDFn          func(ctx context.Context, id string) (*model.Conversation, error)
	findDirectBetweenFn func(ctx context.Context, userID, otherUserID string) (*model.Conversation, error)
	createDirectFn      func(ctx context.Context, conv *model.Conversation, userID, otherUserID string) error
	createGroupFn       func(ctx context.Context, conv *model.Conversation, memberIDs []string) error
	listByUserIDFn      func(ctx context.Context, userID string) ([]*model.Conversation, error)
}

func (m *mockConvRepo) FindByID(ctx context.Context, id string) (*model.Conversation, error) {
	return m.findByIDFn(ctx, id)
}
func (m *mockConvRepo) FindDirectBetween(ctx context.Context, userID, otherUserID string) (*model.Conversation, error) {
	return m.findDirectBetweenFn(ctx, userID, otherUserID)
}
func (m *mockConvRepo) CreateDirect(ctx context.Context, conv *model.Conversation, userID, otherUserID string) error {
	if m.createDirectFn != nil {
		return m.createDirectFn(ctx, conv, userID, otherUserID)
	}
	return nil
}
func (m *mockConvRepo) CreateGroup(ctx context.Context, conv *model.Conversation, memberIDs []string) error {
	if m.createGroupFn != nil {
		return m.createGroupFn(ctx, conv, memberIDs)
	}
	return nil
}
func (m *mockConvRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Conversation, error) {
	if m.listByUserIDFn != nil {
		return m.listByUserIDFn(ctx, userID)
	}
	return nil, nil
}

var _ repository.ConversationRepository = (*mockConvRepo)(nil)

type mockUserRepo struct {
	users map[string]*model.User
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	return m.users[id], nil
}
func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return nil, nil
}
func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	return nil
}
func (m *mockUserRepo) UpdateLastLogin(ctx context.Context, id string) error {
	return nil
}
func (m *mockUserRepo) FindExistingIDs(ctx context.Context, ids []string) (map[string]bool, error) {
	existing := map[string]bool{}
	for _, id := range ids {
		if m.users[id] != nil {
			existing[id] = true
		}
	}
	return existing, nil
}

var _ repository.UserRepository = (*mockUserRepo)(nil)

type mockConvMetrics struct {
	direct int
	group  int
}

func (m *mockConvMetrics) RecordConversationCreated(isGroup bool) {
	if isGroup {
		m.group++
	} else {
		m.direct++
	}
}

func threeUsers() *mockUserRepo {
	return &mockUserRepo{users: map[string]*model.User{
		"alice": {ID: "alice"},
		"bob":   {ID: "bob"},
		"carol": {ID: "carol"},
	}}
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("APIErrorが返るべき: %v", err)
	}
	if apiErr.Code != code {
		t.Errorf("Code = %q, want %q", apiErr.Code, code)
	}
}

// --- CreateOrGetDirect ---

// TestService_CreateOrGetDirect_CreatesNew は新規ダイレクト会話の作成を検証する。
func TestService_CreateOrGetDirect_CreatesNew(t *testing.T) {
	var createdID string
	convRepo := &mockConvRepo{
		findDirectBetweenFn: func(ctx context.Context, userID, otherUserID string) (*model.Conversation, error) {
			return nil, nil
		},
		createDirectFn: func(ctx context.Context, conv *model.Conversation, userID, otherUserID string) error {
			createdID = conv.ID
			return nil
		},
		findByIDFn: func(ctx context.Context, id string) (*model.Conversation, error) {
			return &model.Conversation{
				ID:      id,
				IsGroup: false,
				Participants: []model.User{
					{ID: "alice"}, {ID: "bob"},
				},
			}, nil
		},
	}
	metrics := &mockConvMetrics{}
	svc := NewService(convRepo, threeUsers(), metrics)

	conv, err := svc.CreateOrGetDirect(context.Background(), "alice", "bob")
	if err != nil {
		t.Fatalf("CreateOrGetDirect() がエラーを返した: %v", err)
	}

	if conv.ID != createdID {
		t.Error("作成した会話が返却されなかった")
	}
	if conv.IsGroup {
		t.Error("ダイレクト会話がグループとして作成された")
	}
	if len(conv.Participants) != 2 {
		t.Errorf("len(Participants) = %d, want 2", len(conv.Participants))
	}
	if metrics.direct != 1 {
		t.Errorf("direct = %d, want 1", metrics.direct)
	}
}

// TestService_CreateOrGetDirect_ReturnsExisting は既存会話がそのまま
// 返ることを検証する。
func TestService_CreateOrGetDirect_ReturnsExisting(t *testing.T) {
	existing := &model.Conversation{ID: "conv-1", IsGroup: false}
	convRepo := &mockConvRepo{
		findDirectBetweenFn: func(ctx context.Context, userID, otherUserID string) (*model.Conversation, error) {
			return existing, nil
		},
		createDirectFn: func(ctx context.Context, conv *model.Conversation, userID, otherUserID string) error {
			t.Fatal("既存会話があるのにCreateDirectが呼ばれた")
			return nil
		},
	}
	metrics := &mockConvMetrics{}
	svc := NewService(convRepo, threeUsers(), metrics)

	conv, err := svc.CreateOrGetDirect(context.Background(), "alice", "bob")
	if err != nil {
		t.Fatalf("CreateOrGetDirect() がエラーを返した: %v", err)
	}
	if conv.ID != "conv-1" {
		t.Errorf("ID = %q, want %q", conv.ID, "conv-1")
	}
	if metrics.direct != 0 {
		t.Error("既存会話の取得が新規作成として記録された")
	}
}

// TestService_CreateOrGetDirect_CreateRace は並行作成の敗者が
// 勝者の会話を受け取ることを検証する。
func TestService_CreateOrGetDirect_CreateRace(t *testing.T) {
	winner := &model.Conversation{ID: "conv-winner", IsGroup: false}
	findCalls := 0
	convRepo := &mockConvRepo{
		findDirectBetweenFn: func(ctx context.Context, userID, otherUserID string) (*model.Conversation, error) {
			findCalls++
			if findCalls == 1 {
				return nil, nil
			}
			return winner, nil
		},
		createDirectFn: func(ctx context.Context, conv *model.Conversation, userID, otherUserID string) error {
			return repository.ErrUniqueViolation
		},
	}
	svc := NewService(convRepo, threeUsers(), nil)

	conv, err := svc.CreateOrGetDirect(context.Background(), "alice", "bob")
	if err != nil {
		t.Fatalf("CreateOrGetDirect() がエラーを返した: %v", err)
	}
	if conv.ID != "conv-winner" {
		t.Errorf("ID = %q, want 勝者の会話", conv.ID)
	}
}

// TestService_CreateOrGetDirect_Self は自分自身との会話の拒否を検証する。
func TestService_CreateOrGetDirect_Self(t *testing.T) {
	svc := NewService(&mockConvRepo{}, threeUsers(), nil)

	_, err := svc.CreateOrGetDirect(context.Background(), "alice", "alice")
	assertCode(t, err, model.ErrCodeSelfConversation)
}

// TestService_CreateOrGetDirect_TargetNotFound は実在しない相手の拒否を検証する。
func TestService_CreateOrGetDirect_TargetNotFound(t *testing.T) {
	svc := NewService(&mockConvRepo{}, threeUsers(), nil)

	_, err := svc.CreateOrGetDirect(context.Background(), "alice", "nobody")
	assertCode(t, err, model.ErrCodeUserNotFound)
}

// --- CreateGroup ---

// TestService_CreateGroup はグループ会話の作成を検証する。
// 参加者リストは作成者を含み重複排除される。
func TestService_CreateGroup(t *testing.T) {
	var createdMembers []string
	convRepo := &mockConvRepo{
		createGroupFn: func(ctx context.Context, conv *model.Conversation, memberIDs []string) error {
			createdMembers = memberIDs
			return nil
		},
		findByIDFn: func(ctx context.Context, id string) (*model.Conversation, error) {
			return &model.Conversation{
				ID:      id,
				IsGroup: true,
				Title:   "勉強会",
				Participants: []model.User{
					{ID: "alice"}, {ID: "bob"}, {ID: "carol"},
				},
			}, nil
		},
	}
	metrics := &mockConvMetrics{}
	svc := NewService(convRepo, threeUsers(), metrics)

	// 作成者自身とbobの重複を含むメンバー指定
	conv, err := svc.CreateGroup(context.Background(), "alice", "勉強会", []string{"bob", "alice", "carol", "bob"})
	if err != nil {
		t.Fatalf("CreateGroup() がエラーを返した: %v", err)
	}

	want := []string{"alice", "bob", "carol"}
	if len(createdMembers) != len(want) {
		t.Fatalf("len(members) = %d, want %d", len(createdMembers), len(want))
	}
	for i, id := range want {
		if createdMembers[i] != id {
			t.Errorf("members[%d] = %q, want %q", i, createdMembers[i], id)
		}
	}
	if !conv.IsGroup || conv.Title != "勉強会" {
		t.Errorf("会話内容が不正: %+v", conv)
	}
	if metrics.group != 1 {
		t.Errorf("group = %d, want 1", metrics.group)
	}
}

// TestService_CreateGroup_TwoMembers は作成者と相手1名だけの
// グループが作成できることを検証する。
func TestService_CreateGroup_TwoMembers(t *testing.T) {
	var createdMembers []string
	convRepo := &mockConvRepo{
		createGroupFn: func(ctx context.Context, conv *model.Conversation, memberIDs []string) error {
			createdMembers = memberIDs
			return nil
		},
		findByIDFn: func(ctx context.Context, id string) (*model.Conversation, error) {
			return &model.Conversation{
				ID:      id,
				IsGroup: true,
				Title:   "pair",
				Participants: []model.User{
					{ID: "alice"}, {ID: "bob"},
				},
			}, nil
		},
	}
	svc := NewService(convRepo, threeUsers(), nil)

	conv, err := svc.CreateGroup(context.Background(), "alice", "pair", []string{"bob"})
	if err != nil {
		t.Fatalf("CreateGroup() がエラーを返した: %v", err)
	}
	if len(createdMembers) != 2 {
		t.Fatalf("len(members) = %d, want 2", len(createdMembers))
	}
	if !conv.IsGroup {
		t.Error("2名のグループ会話が作成できるべき")
	}
}

// TestService_CreateGroup_TooSmall は重複排除後2名未満の拒否を検証する。
func TestService_CreateGroup_TooSmall(t *testing.T) {
	svc := NewService(&mockConvRepo{}, threeUsers(), nil)

	// 作成者自身と重複だけではグループにならない
	_, err := svc.CreateGroup(context.Background(), "alice", "", []string{"alice", "alice"})
	assertCode(t, err, model.ErrCodeGroupTooSmall)
}

// TestService_CreateGroup_MissingMembers は実在しないメンバーIDが
// エラーに列挙されることを検証する。
func TestService_CreateGroup_MissingMembers(t *testing.T) {
	svc := NewService(&mockConvRepo{}, threeUsers(), nil)

	_, err := svc.CreateGroup(context.Background(), "alice", "", []string{"bob", "ghost-1", "ghost-2"})
	assertCode(t, err, model.ErrCodeMembersNotFound)

	var apiErr *model.APIError
	errors.As(err, &apiErr)
	if !strings.Contains(apiErr.Message, "ghost-1") || !strings.Contains(apiErr.Message, "ghost-2") {
		t.Errorf("エラーメッセージに実在しないIDが列挙されるべき: %q", apiErr.Message)
	}
}

// --- GetByID / ListForUser ---

// TestService_GetByID は参加者による取得を検証する。
func TestService_GetByID(t *testing.T) {
	convRepo := &mockConvRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Conversation, error) {
			return &model.Conversation{
				ID:      "conv-1",
				IsGroup: false,
				Participants: []model.User{
					{ID: "alice"}, {ID: "bob"},
				},
			}, nil
		},
	}
	svc := NewService(convRepo, threeUsers(), nil)

	conv, err := svc.GetByID(context.Background(), "alice", "conv-1")
	if err != nil {
		t.Fatalf("GetByID() がエラーを返した: %v", err)
	}
	if conv.ID != "conv-1" {
		t.Errorf("ID = %q, want %q", conv.ID, "conv-1")
	}

	// 参加者以外は取得できない
	_, err = svc.GetByID(context.Background(), "carol", "conv-1")
	assertCode(t, err, model.ErrCodeNotParticipant)
}

// TestService_GetByID_NotFound は存在しない会話の拒否を検証する。
func TestService_GetByID_NotFound(t *testing.T) {
	convRepo := &mockConvRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Conversation, error) {
			return nil, nil
		},
	}
	svc := NewService(convRepo, threeUsers(), nil)

	_, err := svc.GetByID(context.Background(), "alice", "missing")
	assertCode(t, err, model.ErrCodeConversationNotFound)
}

// TestService_ListForUser は一覧の委譲を検証する。
func TestService_ListForUser(t *testing.T) {
	now := time.Now()
	convRepo := &mockConvRepo{
		listByUserIDFn: func(ctx context.Context, userID string) ([]*model.Conversation, error) {
			return []*model.Conversation{
				{ID: "conv-2", CreatedAt: now},
				{ID: "conv-1", CreatedAt: now.Add(-time.Hour)},
			}, nil
		},
	}
	svc := NewService(convRepo, threeUsers(), nil)

	convs, err := svc.ListForUser(context.Background(), "alice")
	if err != nil {
		t.Fatalf("ListForUser() がエラーを返した: %v", err)
	}
	if len(convs) != 2 {
		t.Fatalf("len(convs) = %d, want 2", len(convs))
	}
	if convs[0].ID != "conv-2" {
		t.Error("新しい順に返るべき")
	}
}
