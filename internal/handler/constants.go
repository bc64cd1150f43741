// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

// Route pattern constants for chi router registration.
const (
	// RouteRoot is the root path.
	RouteRoot = "/"
	// RouteCafe is the cafe detail route pattern.
	RouteCafe = "/cafe/{id}"
	// RouteSuggest is the suggestion route.
	RouteSuggest = "/suggest"
	// RouteLogin is the login route.
	RouteLogin = "/login"
	// RouteRegister is the registration route.
	RouteRegister = "/register"
	// RouteLogout is the logout route.
	RouteLogout = "/logout"
	// RouteCafeAdd is the admin cafe creation route.
	RouteCafeAdd = "/cafe-add"
	// RouteDelete is the admin cafe deletion route pattern.
	RouteDelete = "/delete/{id}"
	// RouteHealth is the health check route.
	RouteHealth = "/health"
)

// Redirect target constants.
const (
	redirectRoot     = "/"
	redirectLogin    = "/login"
	redirectRegister = "/register"
	redirectSuggest  = "/suggest"
	redirectCafeAdd  = "/cafe-add"
)
