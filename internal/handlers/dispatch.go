package handlers

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/D34dlyK1ss/whoisit/internal/auth"
	"github.com/D34dlyK1ss/whoisit/internal/database"
	"github.com/D34dlyK1ss/whoisit/internal/models"
)

// envelope carries the method discriminator; the payload is re-unmarshaled
// into the typed struct for that method.
type envelope struct {
	Method string `json:"method"`
}

type loginMsg struct {
	Type     string `json:"type,omitempty"` // "auto" for token replay
	ID       string `json:"id,omitempty"`   // auto-login credential
	Username string `json:"username"`
	Password string `json:"password,omitempty"`
}

type logoutMsg struct {
	Username string `json:"username"`
}

type registerMsg struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type recoverAccountMsg struct {
	Email string `json:"email"`
}

type checkVerificationCodeMsg struct {
	VerificationCode string `json:"verificationCode"`
}

type checkRecoveryCodeMsg struct {
	RecoveryCode string `json:"recoveryCode"`
}

type changePasswordMsg struct {
	RecoveryCode string `json:"recoveryCode"`
	NewPassword  string `json:"newPassword"`
}

// createCategoryMsg carries no owner id; ownership comes from the bound
// identity of the connection it arrived on.
type createCategoryMsg struct {
	Name     string        `json:"name"`
	Items    []models.Item `json:"items"`
	IsPublic bool          `json:"isPublic"`
}

type newGameMsg struct {
	Username   string        `json:"username"`
	CategoryID string        `json:"categoryId,omitempty"`
	Items      []models.Item `json:"items,omitempty"`
	Tries      int           `json:"tries"`
}

// joinGameMsg carries only the target game. The seat is bound to the
// connection the message arrived on, never to a client-supplied id.
type joinGameMsg struct {
	GameID   string `json:"gameId"`
	Username string `json:"username"`
}

type startGameMsg struct {
	GameID string `json:"gameId"`
}

type leaveGameMsg struct {
	GameID   string `json:"gameId"`
	Username string `json:"username"`
}

type sendChatMessageMsg struct {
	GameID   string `json:"gameId"`
	Username string `json:"username"`
	Text     string `json:"text"`
}

type guessMsg struct {
	GameID   string `json:"gameId"`
	Username string `json:"username"`
	Guess    string `json:"guess"`
}

type getProfileMsg struct {
	UserID string `json:"userId"`
}

// Dispatch routes one inbound message. Every method the protocol defines is
// handled here; unknown methods are ignored. Rejections never close the
// connection, they only queue an alert back to the origin.
func (s *Server) Dispatch(ctx context.Context, conn *Conn, data []byte) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		s.Conns.Send(conn.ID, alert(true, "", "Invalid message format"))
		return
	}

	switch env.Method {
	case "login":
		var p loginMsg
		if err := json.Unmarshal(data, &p); err != nil {
			s.Conns.Send(conn.ID, alert(true, "login", "Invalid message format"))
			return
		}
		s.handleLogin(ctx, conn, p)
	case "logout":
		var p logoutMsg
		_ = json.Unmarshal(data, &p)
		s.handleLogout(conn)
	case "register":
		var p registerMsg
		if err := json.Unmarshal(data, &p); err != nil {
			s.Conns.Send(conn.ID, alert(true, "register", "Invalid message format"))
			return
		}
		s.handleRegister(ctx, conn, p)
	case "recoverAccount":
		var p recoverAccountMsg
		_ = json.Unmarshal(data, &p)
		s.handleRecoverAccount(ctx, conn, p)
	case "checkVerificationCode":
		var p checkVerificationCodeMsg
		_ = json.Unmarshal(data, &p)
		s.handleCheckVerificationCode(ctx, conn, p)
	case "checkRecoveryCode":
		var p checkRecoveryCodeMsg
		_ = json.Unmarshal(data, &p)
		s.handleCheckRecoveryCode(conn, p)
	case "changePassword":
		var p changePasswordMsg
		_ = json.Unmarshal(data, &p)
		s.handleChangePassword(ctx, conn, p)
	case "getCategoryList":
		s.handleGetCategoryList(ctx, conn)
	case "createCategory":
		var p createCategoryMsg
		if err := json.Unmarshal(data, &p); err != nil {
			s.Conns.Send(conn.ID, alert(true, "createCategory", "Invalid message format"))
			return
		}
		s.handleCreateCategory(ctx, conn, p)
	case "newGame":
		var p newGameMsg
		if err := json.Unmarshal(data, &p); err != nil {
			s.Conns.Send(conn.ID, alert(true, "newGame", "Invalid message format"))
			return
		}
		s.handleNewGame(ctx, conn, p)
	case "joinGame":
		var p joinGameMsg
		_ = json.Unmarshal(data, &p)
		s.handleGameCommand(conn, "joinGame", func(username string) error {
			return s.Games.Join(p.GameID, username, conn.ID)
		})
	case "startGame":
		var p startGameMsg
		_ = json.Unmarshal(data, &p)
		s.handleGameCommand(conn, "startGame", func(string) error {
			return s.Games.Start(p.GameID)
		})
	case "leaveGame":
		var p leaveGameMsg
		_ = json.Unmarshal(data, &p)
		s.handleGameCommand(conn, "leaveGame", func(username string) error {
			return s.Games.Leave(p.GameID, username)
		})
	case "sendChatMessage":
		var p sendChatMessageMsg
		_ = json.Unmarshal(data, &p)
		s.handleGameCommand(conn, "sendChatMessage", func(username string) error {
			return s.Games.Chat(p.GameID, username, p.Text)
		})
	case "guess":
		var p guessMsg
		_ = json.Unmarshal(data, &p)
		s.handleGameCommand(conn, "guess", func(username string) error {
			return s.Games.Guess(p.GameID, username, p.Guess)
		})
	case "getLeaderboard":
		s.handleGetLeaderboard(ctx, conn)
	case "getProfile":
		var p getProfileMsg
		_ = json.Unmarshal(data, &p)
		s.handleGetProfile(ctx, conn, p)
	default:
		// unknown methods are not an error
		s.Log.WithField("method", env.Method).Debug("ignoring unknown method")
	}
}

// handleGameCommand runs a lobby/match command under the bound identity and
// maps validation rejections to alerts.
func (s *Server) handleGameCommand(conn *Conn, action string, fn func(username string) error) {
	if conn.User == nil {
		s.Conns.Send(conn.ID, alert(true, action, "You must be logged in"))
		return
	}
	if err := fn(conn.User.Username); err != nil {
		s.Conns.Send(conn.ID, alert(true, action, err.Error()))
	}
}

func (s *Server) handleLogin(ctx context.Context, conn *Conn, p loginMsg) {
	if conn.User != nil {
		s.Conns.Send(conn.ID, alert(true, "login", "You are already logged in"))
		return
	}

	var (
		user *models.User
		err  error
	)

	if p.Type == "auto" {
		user, err = s.autoLoginUser(ctx, p)
	} else {
		if p.Username == "" || p.Password == "" {
			s.Conns.Send(conn.ID, alert(true, "login", "Username and password are required"))
			return
		}
		user, err = database.AuthenticateUser(ctx, p.Username, p.Password)
	}
	if err != nil {
		s.Log.Debugf("login failed: %v", err)
		s.Conns.Send(conn.ID, alert(true, "login", "Wrong username or password"))
		return
	}

	if err := s.Conns.AttachIdentity(conn.ID, user); err != nil {
		s.Conns.Send(conn.ID, alert(true, "login", "That account is already logged in"))
		return
	}

	token, err := auth.CreateToken(user.ID.String())
	if err != nil {
		s.Log.Errorf("failed to create token: %v", err)
		s.Conns.Send(conn.ID, alert(true, "login", "Something went wrong"))
		return
	}

	s.Conns.Send(conn.ID, map[string]interface{}{
		"method":   "loggedIn",
		"userId":   user.ID.String(),
		"username": user.Username,
		"email":    user.Email,
		"token":    token,
	})
}

// autoLoginUser redeems the signed credential issued at the last password
// login. The id field carries the token; the username must still match the
// account it resolves to.
func (s *Server) autoLoginUser(ctx context.Context, p loginMsg) (*models.User, error) {
	sub, err := auth.VerifyToken(p.ID)
	if err != nil {
		return nil, err
	}
	userID, err := uuid.Parse(sub)
	if err != nil {
		return nil, err
	}
	user, err := database.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Username != p.Username {
		return nil, errors.New("token does not match username")
	}
	user.Password = ""
	return user, nil
}

func (s *Server) handleLogout(conn *Conn) {
	if conn.User != nil {
		s.Games.HandleDisconnect(conn.User.Username)
	}
	s.Conns.DetachIdentity(conn.ID)
	s.Conns.Send(conn.ID, map[string]interface{}{"method": "loggedOut"})
}

func (s *Server) handleRegister(ctx context.Context, conn *Conn, p registerMsg) {
	if p.Username == "" || p.Email == "" || p.Password == "" {
		s.Conns.Send(conn.ID, alert(true, "register", "Username, email and password are required"))
		return
	}

	user := models.User{
		Username: p.Username,
		Email:    p.Email,
		Password: p.Password,
	}
	if err := database.CreateUser(ctx, &user); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			s.Conns.Send(conn.ID, alert(true, "register", "Username or email already taken"))
			return
		}
		s.Log.Errorf("failed to create user: %v", err)
		s.Conns.Send(conn.ID, alert(true, "register", "Something went wrong"))
		return
	}

	code := s.Codes.Issue(user.ID.String(), auth.PurposeVerify)
	if err := s.Mailer.SendVerificationCode(user.Email, user.Username, code); err != nil {
		s.Log.Errorf("failed to send verification code: %v", err)
	}
	s.Conns.Send(conn.ID, alert(false, "register", "Account created, check your email for the verification code"))
}

func (s *Server) handleRecoverAccount(ctx context.Context, conn *Conn, p recoverAccountMsg) {
	if p.Email == "" {
		s.Conns.Send(conn.ID, alert(true, "recoverAccount", "Email is required"))
		return
	}

	user, err := database.GetUserByEmail(ctx, p.Email)
	if err != nil {
		s.Conns.Send(conn.ID, alert(true, "recoverAccount", "No account with that email"))
		return
	}

	code := s.Codes.Issue(user.Email, auth.PurposeRecover)
	if err := s.Mailer.SendRecoveryCode(user.Email, user.Username, code); err != nil {
		s.Log.Errorf("failed to send recovery code: %v", err)
		s.Conns.Send(conn.ID, alert(true, "recoverAccount", "Something went wrong"))
		return
	}
	s.Conns.Send(conn.ID, alert(false, "recoverAccount", "Recovery code sent, check your email"))
}

func (s *Server) handleCheckVerificationCode(ctx context.Context, conn *Conn, p checkVerificationCodeMsg) {
	subject, err := s.Codes.Redeem(p.VerificationCode, auth.PurposeVerify)
	if err != nil {
		s.Conns.Send(conn.ID, alert(true, "checkVerificationCode", "That code is expired or invalid"))
		return
	}

	userID, err := uuid.Parse(subject)
	if err == nil {
		err = database.MarkUserVerified(ctx, userID)
	}
	if err != nil {
		s.Log.Errorf("failed to mark user verified: %v", err)
		s.Conns.Send(conn.ID, alert(true, "checkVerificationCode", "Something went wrong"))
		return
	}

	s.Conns.Send(conn.ID, map[string]interface{}{
		"method": "checkVerificationCode",
		"valid":  true,
	})
}

func (s *Server) handleCheckRecoveryCode(conn *Conn, p checkRecoveryCodeMsg) {
	if _, err := s.Codes.Peek(p.RecoveryCode, auth.PurposeRecover); err != nil {
		s.Conns.Send(conn.ID, alert(true, "checkRecoveryCode", "That code is expired or invalid"))
		return
	}
	s.Conns.Send(conn.ID, map[string]interface{}{
		"method": "checkRecoveryCode",
		"valid":  true,
	})
}

func (s *Server) handleChangePassword(ctx context.Context, conn *Conn, p changePasswordMsg) {
	if p.NewPassword == "" {
		s.Conns.Send(conn.ID, alert(true, "changePassword", "New password is required"))
		return
	}

	email, err := s.Codes.Redeem(p.RecoveryCode, auth.PurposeRecover)
	if err != nil {
		s.Conns.Send(conn.ID, alert(true, "changePassword", "That code is expired or invalid"))
		return
	}

	if err := database.UpdatePassword(ctx, email, p.NewPassword); err != nil {
		s.Log.Errorf("failed to update password: %v", err)
		s.Conns.Send(conn.ID, alert(true, "changePassword", "Something went wrong"))
		return
	}
	s.Conns.Send(conn.ID, alert(false, "changePassword", "Password changed, you can log in now"))
}

func (s *Server) handleGetCategoryList(ctx context.Context, conn *Conn) {
	requesterID := uuid.Nil
	if conn.User != nil {
		requesterID = conn.User.ID
	}

	cats, err := database.ListCategories(ctx, requesterID)
	if err != nil {
		s.Log.Errorf("failed to list categories: %v", err)
		s.Conns.Send(conn.ID, alert(true, "getCategoryList", "Something went wrong"))
		return
	}
	s.Conns.Send(conn.ID, map[string]interface{}{
		"method": "getCategoryList",
		"data":   cats,
	})
}

func (s *Server) handleCreateCategory(ctx context.Context, conn *Conn, p createCategoryMsg) {
	if conn.User == nil {
		s.Conns.Send(conn.ID, alert(true, "createCategory", "You must be logged in"))
		return
	}
	if p.Name == "" || len(p.Items) < 2 {
		s.Conns.Send(conn.ID, alert(true, "createCategory", "A category needs a name and at least two items"))
		return
	}

	cat := models.Category{
		OwnerID:  conn.User.ID,
		Name:     p.Name,
		Items:    p.Items,
		IsPublic: p.IsPublic,
	}
	if err := database.CreateCategory(ctx, &cat); err != nil {
		s.Log.Errorf("failed to create category: %v", err)
		s.Conns.Send(conn.ID, alert(true, "createCategory", "Something went wrong"))
		return
	}
	s.Conns.Send(conn.ID, map[string]interface{}{
		"method":   "createCategory",
		"category": cat,
	})
}

func (s *Server) handleNewGame(ctx context.Context, conn *Conn, p newGameMsg) {
	if conn.User == nil {
		s.Conns.Send(conn.ID, alert(true, "newGame", "You must be logged in"))
		return
	}

	var category models.Category
	if p.CategoryID != "" {
		catID, err := uuid.Parse(p.CategoryID)
		if err != nil {
			s.Conns.Send(conn.ID, alert(true, "newGame", "Invalid category"))
			return
		}
		cat, err := database.GetCategoryByID(ctx, catID)
		if err != nil {
			s.Conns.Send(conn.ID, alert(true, "newGame", "That category doesn't exist"))
			return
		}
		category = *cat
	} else {
		category = models.Category{Name: "Custom", Items: p.Items}
	}
	if len(category.Items) < 2 {
		s.Conns.Send(conn.ID, alert(true, "newGame", "A game needs at least two items"))
		return
	}

	code, err := s.Games.CreateGame(conn.User.Username, category, p.Tries)
	if err != nil {
		s.Conns.Send(conn.ID, alert(true, "newGame", err.Error()))
		return
	}
	s.Conns.Send(conn.ID, map[string]interface{}{
		"method": "newGame",
		"gameId": code,
	})
}

func (s *Server) handleGetLeaderboard(ctx context.Context, conn *Conn) {
	entries, err := database.GetLeaderboard(ctx, 10)
	if err != nil {
		s.Log.Errorf("failed to load leaderboard: %v", err)
		s.Conns.Send(conn.ID, alert(true, "getLeaderboard", "Something went wrong"))
		return
	}
	s.Conns.Send(conn.ID, map[string]interface{}{
		"method": "getLeaderboard",
		"data":   entries,
	})
}

func (s *Server) handleGetProfile(ctx context.Context, conn *Conn, p getProfileMsg) {
	userID, err := uuid.Parse(p.UserID)
	if err != nil {
		s.Conns.Send(conn.ID, alert(true, "getProfile", "Invalid user id"))
		return
	}

	user, err := database.GetUserByID(ctx, userID)
	if err != nil {
		s.Conns.Send(conn.ID, alert(true, "getProfile", "User not found"))
		return
	}
	user.Password = ""

	history, err := database.GetMatchHistory(ctx, userID, 20)
	if err != nil {
		s.Log.Errorf("failed to load match history: %v", err)
		s.Conns.Send(conn.ID, alert(true, "getProfile", "Something went wrong"))
		return
	}

	s.Conns.Send(conn.ID, map[string]interface{}{
		"method":       "getProfile",
		"userInfo":     user,
		"matchHistory": history,
	})
}
