package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Register mounts every route on e. mw wraps the mutating routes only.
func Register(e *echo.Echo, h *Handler, loans *LoanHandler, admins *AdminHandler, metrics http.Handler, mw ...echo.MiddlewareFunc) {
	e.GET("/health", h.Health)
	if metrics != nil {
		e.GET("/metrics", echo.WrapHandler(metrics))
	}

	e.GET("/loans", loans.ListLoans)
	e.GET("/loans/min-collateral", loans.GetMinCollateral)
	e.GET("/loans/:id", loans.GetLoan)
	e.GET("/loans/:id/ratio", loans.GetRatio)
	e.GET("/loans/:id/collateral-diff", loans.GetCollateralDiff)
	e.GET("/loans/:id/shareholders", loans.GetShareholders)
	e.GET("/loans/:id/interests", loans.GetInterests)

	e.GET("/admin/params", admins.GetParams)
	e.GET("/admin/admins", admins.ListAdmins)
	e.GET("/pairs/:id", admins.GetPair)
	e.GET("/assets/:asset/balances/:holder", admins.Balance)
	e.GET("/fees/:asset", admins.FeeBalance)

	e.POST("/loans", loans.OpenLoan, mw...)
	e.POST("/loans/interests/withdraw", loans.WithdrawInterestsMassive, mw...)
	e.POST("/loans/:id/collateral", loans.DepositCollateral, mw...)
	e.POST("/loans/:id/fund", loans.Fund, mw...)
	e.POST("/loans/:id/foreclosure", loans.InitiateForeclosure, mw...)
	e.POST("/loans/:id/foreclosed", loans.Foreclose, mw...)
	e.POST("/loans/:id/settle", loans.Settle, mw...)
	e.POST("/loans/:id/cancel", loans.Cancel, mw...)
	e.POST("/loans/:id/shareholders", loans.AddShareholders, mw...)
	e.POST("/loans/:id/interests/withdraw", loans.WithdrawInterests, mw...)

	e.PUT("/admin/params", admins.SetParams, mw...)
	e.POST("/admin/admins", admins.AddAdmin, mw...)
	e.POST("/admin/pairs", admins.NewPair, mw...)
	e.PUT("/admin/pairs/:id/value", admins.SetPairValue, mw...)
	e.POST("/admin/assets/:asset/mint", admins.Mint, mw...)
	e.POST("/assets/:asset/approve", admins.Approve, mw...)
}
