package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"vapex/internal/apperr"
	"vapex/internal/ingredients"
	applog "vapex/internal/log"
	"vapex/internal/metrics"
	"vapex/internal/recipes"
	"vapex/internal/votes"
	"vapex/models"
)

const (
	sessionAuthenticatedKey = "auth:authenticated"
	sessionUserIDKey        = "auth:user:id"
	sessionUserEmailKey     = "auth:user:email"
	sessionUserNameKey      = "auth:user:name"
)

// Options carries tunables shared by the handlers.
type Options struct {
	FreeRecipeLimit     int
	FreeIngredientLimit int
	Metrics             *metrics.Recorder
}

var (
	sessionManager *scs.SessionManager
	database       *gorm.DB
	options        Options
)

// Configure installs the shared dependencies used by the HTTP handlers.
func Configure(sm *scs.SessionManager, db *gorm.DB, opts Options) {
	sessionManager = sm
	database = db
	options = opts
}

func recipeStore() *recipes.Store {
	return recipes.NewStore(database, recipes.Options{FreeRecipeLimit: options.FreeRecipeLimit})
}

func ingredientStore() *ingredients.Store {
	return ingredients.NewStore(database, ingredients.Options{FreeIngredientLimit: options.FreeIngredientLimit})
}

func voteLedger() *votes.Ledger {
	return votes.NewLedger(database)
}

type userResponse struct {
	ID        uint      `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	IsPremium bool      `json:"is_premium"`
	CreatedAt time.Time `json:"created_at"`
}

func projectUser(user *models.User) userResponse {
	return userResponse{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		IsPremium: user.IsPremium,
		CreatedAt: user.CreatedAt,
	}
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Name     string `json:"name" validate:"max=100"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Register creates an account and signs it in.
func Register(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	if !authAvailable(w) {
		return
	}

	var payload registerRequest
	if err := decodeAndValidate(r, &payload, false); err != nil {
		writeError(w, r, err, "unable to register")
		return
	}

	email := strings.ToLower(strings.TrimSpace(payload.Email))
	if _, err := findUserByEmail(r, email); err == nil {
		writeError(w, r, apperr.Conflict("an account with this email already exists"), "unable to register")
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		writeError(w, r, err, "unable to register")
		return
	}

	user, err := createUser(r, email, payload.Name, payload.Password)
	if err != nil {
		writeError(w, r, err, "unable to register")
		return
	}
	if err := establishSession(r, user); err != nil {
		writeError(w, r, err, "unable to start session")
		return
	}

	applog.Info(r.Context(), "user registered", "user", user.ID)
	writeJSON(w, http.StatusCreated, map[string]any{"user": projectUser(user)})
}

// Login verifies credentials and starts a session.
func Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	if !authAvailable(w) {
		return
	}

	var payload loginRequest
	if err := decodeAndValidate(r, &payload, false); err != nil {
		writeError(w, r, err, "unable to sign in")
		return
	}

	user, err := findUserByEmail(r, payload.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSONError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}
		writeError(w, r, err, "unable to sign in")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(payload.Password)); err != nil {
		writeJSONError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}
	if err := establishSession(r, user); err != nil {
		writeError(w, r, err, "unable to start session")
		return
	}

	applog.Debug(r.Context(), "user signed in", "user", user.ID)
	writeJSON(w, http.StatusOK, map[string]any{"user": projectUser(user)})
}

// Logout destroys the current session.
func Logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	if sessionManager != nil {
		if err := sessionManager.Destroy(r.Context()); err != nil {
			applog.Error(r.Context(), "failed to destroy session", "error", err)
			writeJSONError(w, http.StatusInternalServerError, "unable to sign out")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "signed out"})
}

func authAvailable(w http.ResponseWriter) bool {
	if database == nil || sessionManager == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "service unavailable")
		return false
	}
	return true
}

func createUser(r *http.Request, email, name, password string) (*models.User, error) {
	if database == nil {
		return nil, gorm.ErrInvalidDB
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:        strings.ToLower(email),
		Name:         strings.TrimSpace(name),
		PasswordHash: string(hashed),
	}

	if err := database.WithContext(r.Context()).Create(user).Error; err != nil {
		return nil, err
	}

	return user, nil
}

func findUserByEmail(r *http.Request, email string) (*models.User, error) {
	if database == nil {
		return nil, gorm.ErrInvalidDB
	}

	user := &models.User{}
	err := database.WithContext(r.Context()).Where("lower(email) = ?", strings.ToLower(strings.TrimSpace(email))).First(user).Error
	if err != nil {
		return nil, err
	}
	return user, nil
}

func establishSession(r *http.Request, user *models.User) error {
	if sessionManager == nil {
		return errors.New("session manager not configured")
	}
	if err := sessionManager.RenewToken(r.Context()); err != nil {
		return err
	}
	sessionManager.Put(r.Context(), sessionAuthenticatedKey, true)
	sessionManager.Put(r.Context(), sessionUserIDKey, int(user.ID))
	sessionManager.Put(r.Context(), sessionUserEmailKey, user.Email)
	sessionManager.Put(r.Context(), sessionUserNameKey, user.Name)
	return nil
}

// ActiveSession returns true when the current request has an authenticated session.
func ActiveSession(r *http.Request) bool {
	_, ok := currentUserID(r)
	return ok
}

func currentUserID(r *http.Request) (uint, bool) {
	if sessionManager == nil {
		return 0, false
	}
	if !sessionManager.GetBool(r.Context(), sessionAuthenticatedKey) {
		return 0, false
	}
	id := sessionManager.GetInt(r.Context(), sessionUserIDKey)
	if id <= 0 {
		return 0, false
	}
	return uint(id), true
}

// viewerID is the authenticated user, or 0 for anonymous requests.
func viewerID(r *http.Request) uint {
	id, _ := currentUserID(r)
	return id
}

// requireUser loads the signed-in account, answering 503 or 401 itself when
// that is not possible. The account is re-read so premium upgrades apply
// without a new login.
func requireUser(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	if database == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "service unavailable")
		return nil, false
	}
	userID, ok := currentUserID(r)
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "authentication required")
		return nil, false
	}

	var user models.User
	if err := database.WithContext(r.Context()).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSONError(w, http.StatusUnauthorized, "authentication required")
			return nil, false
		}
		writeError(w, r, err, "unable to load account")
		return nil, false
	}
	return &user, true
}

func ownerOf(user *models.User) recipes.Owner {
	return recipes.Owner{UserID: user.ID, IsPremium: user.IsPremium}
}
