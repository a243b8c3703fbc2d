// Copyright 2023 - 2025, the dtextview contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package middleware holds the HTTP middleware shared by every route.

A Middleware receives the next handler explicitly so that it can decide
whether, and with which request, to continue the chain.
*/
package middleware
