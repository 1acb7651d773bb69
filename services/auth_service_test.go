package services

import (
	"context"
	"errors"
	"testing"

	"github.com/Dosada05/pong-arena/models"
	"github.com/Dosada05/pong-arena/repositories"
)

type fakeUserRepo struct {
	nextID  int
	byEmail map[string]*models.User
	byID    map[int]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		nextID:  1,
		byEmail: make(map[string]*models.User),
		byID:    make(map[int]*models.User),
	}
}

func (r *fakeUserRepo) Create(ctx context.Context, user *models.User) error {
	if _, exists := r.byEmail[user.Email]; exists {
		return repositories.ErrUserEmailConflict
	}
	for _, existing := range r.byID {
		if existing.Nickname == user.Nickname {
			return repositories.ErrUserNicknameConflict
		}
	}
	user.ID = r.nextID
	r.nextID++
	r.byEmail[user.Email] = user
	r.byID[user.ID] = user
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id int) (*models.User, error) {
	user, ok := r.byID[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	return user, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	user, ok := r.byEmail[email]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	return user, nil
}

func TestRegister(t *testing.T) {
	svc := NewAuthService(newFakeUserRepo())
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{
		Nickname: "alice",
		Email:    "Alice@Example.COM",
		Password: "correct-horse",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.ID == 0 {
		t.Error("registered user has no id")
	}
	if user.Email != "alice@example.com" {
		t.Errorf("email = %q, want lowercased", user.Email)
	}
	if user.PasswordHash == "correct-horse" || user.PasswordHash == "" {
		t.Error("password stored without hashing")
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := NewAuthService(newFakeUserRepo())
	ctx := context.Background()

	tests := []struct {
		name    string
		input   RegisterInput
		wantErr error
	}{
		{"missing nickname", RegisterInput{Email: "a@b.c", Password: "longenough"}, ErrValidationFailed},
		{"missing email", RegisterInput{Nickname: "a", Password: "longenough"}, ErrValidationFailed},
		{"short password", RegisterInput{Nickname: "a", Email: "a@b.c", Password: "short"}, ErrPasswordTooShort},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Register(ctx, tc.input); !errors.Is(err, tc.wantErr) {
				t.Errorf("Register() error = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestRegisterConflicts(t *testing.T) {
	svc := NewAuthService(newFakeUserRepo())
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterInput{Nickname: "alice", Email: "a@b.c", Password: "longenough"}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Register(ctx, RegisterInput{Nickname: "other", Email: "a@b.c", Password: "longenough"}); !errors.Is(err, ErrAuthEmailTaken) {
		t.Errorf("duplicate email error = %v, want ErrAuthEmailTaken", err)
	}
	if _, err := svc.Register(ctx, RegisterInput{Nickname: "alice", Email: "x@y.z", Password: "longenough"}); !errors.Is(err, ErrAuthNicknameTaken) {
		t.Errorf("duplicate nickname error = %v, want ErrAuthNicknameTaken", err)
	}
}

func TestLogin(t *testing.T) {
	svc := NewAuthService(newFakeUserRepo())
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterInput{Nickname: "alice", Email: "a@b.c", Password: "longenough"}); err != nil {
		t.Fatal(err)
	}

	user, err := svc.Login(ctx, LoginInput{Email: "A@B.C", Password: "longenough"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if user.Nickname != "alice" {
		t.Errorf("nickname = %q, want alice", user.Nickname)
	}

	if _, err := svc.Login(ctx, LoginInput{Email: "a@b.c", Password: "wrong-password"}); !errors.Is(err, ErrAuthInvalidCredentials) {
		t.Errorf("wrong password error = %v, want ErrAuthInvalidCredentials", err)
	}
	if _, err := svc.Login(ctx, LoginInput{Email: "nobody@b.c", Password: "longenough"}); !errors.Is(err, ErrAuthInvalidCredentials) {
		t.Errorf("unknown email error = %v, want ErrAuthInvalidCredentials", err)
	}
}
