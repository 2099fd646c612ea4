package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/tomolink/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	TokenVerifier     middleware.AccessTokenVerifier
	UserFinder        middleware.UserFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger

	// サービス
	AuthService         AuthServiceInterface
	QrService           QrServiceInterface
	FriendService       FriendServiceInterface
	ConversationService ConversationServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging → Auth → RateLimit(General)
//
// 認証ルート（/auth/*）とヘルスチェックは認証ミドルウェアの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	if deps.Logger != nil {
		r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	}

	authHandler := NewAuthHandler(deps.AuthService)
	qrHandler := NewQrHandler(deps.QrService)
	friendHandler := NewFriendHandler(deps.FriendService)
	convHandler := NewConversationHandler(deps.ConversationService)

	// --- 認証不要のルート ---

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", func(r chi.Router) {
		r.Post("/google", authHandler.GoogleLogin)
		r.Post("/refresh", authHandler.Refresh)
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Auth → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(deps.TokenVerifier, deps.UserFinder))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// QRコード友達追加
		r.Get("/api/qr/my", qrHandler.MyQr)

		// 友達関係
		r.Route("/api/friends", func(r chi.Router) {
			// 申請系には友達申請専用レート制限を追加
			r.With(deps.RateLimiter.FriendRequestMiddleware()).Post("/request", friendHandler.SendRequest)
			r.With(deps.RateLimiter.FriendRequestMiddleware()).Post("/request-from-qr", friendHandler.SendRequestFromQr)

			r.Post("/accept", friendHandler.Accept)
			r.Post("/reject", friendHandler.Reject)
			r.Post("/block", friendHandler.Block)
			r.Get("/list", friendHandler.ListFriends)
			r.Get("/pending", friendHandler.ListPending)
		})

		// 会話
		r.Route("/api/conversations", func(r chi.Router) {
			r.Post("/direct", convHandler.CreateDirect)
			r.Post("/group", convHandler.CreateGroup)
			r.Get("/", convHandler.List)
			r.Get("/{id}", convHandler.Get)
		})
	})

	return r
}
