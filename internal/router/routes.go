package router

import (
	"net/http"

	"github.com/iliyamo/bank-assistant/internal/handler"
)

// Table is the complete route table of the server.
func Table(d Deps, u *handler.UtilityHandler) []Route {
	a, ch, cu, ad, p := d.Auth, d.Chat, d.Customer, d.Admin, d.Pages
	return []Route{
		// auth
		{Method: http.MethodPost, Path: "/api/auth/login", Description: "User login", Limited: true, Handler: a.Login},
		{Method: http.MethodPost, Path: "/api/auth/logout", Description: "User logout", Handler: a.Logout},
		{Method: http.MethodGet, Path: "/api/auth/status", Description: "Authentication status", Handler: a.Status},
		{Method: http.MethodPost, Path: "/api/auth/forgot-password", Description: "Request a password reset token", Limited: true, Handler: a.ForgotPassword},
		{Method: http.MethodPost, Path: "/api/auth/reset-password", Description: "Reset password with a token", Limited: true, Handler: a.ResetPassword},
		{Method: http.MethodGet, Path: "/api/auth/get-security-question", Description: "Get a user's security question", Limited: true, Handler: a.SecurityQuestion},
		{Method: http.MethodPost, Path: "/api/auth/verify-security-question", Description: "Verify a security answer", Limited: true, Handler: a.VerifySecurityQuestion},

		// chat
		{Method: http.MethodPost, Path: "/api/chat", Description: "Send chat message to AI assistant", Access: SessionRequired, Handler: ch.Send},
		{Method: http.MethodGet, Path: "/api/test-connection", Description: "Test chat service connection", Access: SessionRequired, Handler: ch.TestConnection},

		// customer
		{Method: http.MethodGet, Path: "/api/customer/usernames", Description: "List customer usernames for login", Handler: cu.Usernames},
		{Method: http.MethodGet, Path: "/api/customer/current", Description: "Current customer profile", Access: SessionRequired, Handler: cu.Current},
		{Method: http.MethodGet, Path: "/api/customer/random", Description: "Get random customer profile", Access: SessionRequired, Handler: cu.Random},
		{Method: http.MethodGet, Path: "/api/customer/search", Description: "Search customers (?q=)", Access: SessionRequired, Handler: cu.Search},
		{Method: http.MethodGet, Path: "/api/customer/stats", Description: "Get customer statistics", Access: SessionRequired, Cached: true, Handler: cu.Stats},
		{Method: http.MethodGet, Path: "/api/customer/loan-type/:type", Description: "Get customers by loan type", Access: SessionRequired, Handler: cu.ByLoanType},
		{Method: http.MethodGet, Path: "/api/customer/risk-level/:level", Description: "Get customers by risk level", Access: SessionRequired, Handler: cu.ByRiskLevel},
		{Method: http.MethodGet, Path: "/api/customer/my-loan", Description: "Current customer's loan", Access: SessionRequired, Handler: cu.MyLoan},
		{Method: http.MethodGet, Path: "/api/customer/my-account", Description: "Current customer's account summary", Access: SessionRequired, Handler: cu.MyAccount},
		{Method: http.MethodPost, Path: "/api/loan/calculate", Description: "Calculate loan payment", Access: SessionRequired, Handler: handler.CalculateLoan},

		// admin
		{Method: http.MethodGet, Path: "/api/admin/customers", Description: "List all customers", Access: AdminRequired, Handler: ad.Customers},
		{Method: http.MethodGet, Path: "/api/admin/customer/:id", Description: "Get customer by id", Access: AdminRequired, Handler: ad.Customer},
		{Method: http.MethodGet, Path: "/api/admin/stats", Description: "Admin statistics", Access: AdminRequired, Cached: true, Handler: ad.Stats},

		// utility
		{Method: http.MethodGet, Path: "/api/health", Description: "Health check", Handler: u.Health},
		{Method: http.MethodGet, Path: "/api/endpoints", Description: "List all endpoints", Handler: u.ListEndpoints},

		// pages
		{Method: http.MethodGet, Path: "/", Page: true, Handler: p.Index},
		{Method: http.MethodGet, Path: "/login.html", Page: true, Handler: p.Login},
		{Method: http.MethodGet, Path: "/chat", Page: true, Access: SessionRequired, Handler: p.Chat},
		{Method: http.MethodGet, Path: "/admin", Page: true, Access: AdminRequired, Handler: p.Admin},
		{Method: http.MethodGet, Path: "/admin_dashboard.html", Page: true, Access: AdminRequired, Handler: p.Admin},
		{Method: http.MethodGet, Path: "/loan-calculator.html", Page: true, Access: SessionRequired, Handler: p.LoanCalculator},
		{Method: http.MethodGet, Path: "/customer_profile.html", Page: true, Access: SessionRequired, Handler: p.CustomerProfile},
		{Method: http.MethodGet, Path: "/" + handler.LogoFile, Page: true, Handler: p.Logo},
		{Method: http.MethodGet, Path: "/images/:file", Page: true, Handler: p.Asset("images")},
		{Method: http.MethodGet, Path: "/css/:file", Page: true, Handler: p.Asset("css")},
		{Method: http.MethodGet, Path: "/js/:file", Page: true, Handler: p.Asset("js")},
	}
}
