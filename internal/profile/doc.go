// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package profile holds the small vocabulary shared by every bootstrap stage:
// the fixed set of profile categories, the descriptor line grammar
// `[<scope>,]<profileName>` and the scope filter applied to parsed lines.
//
// Everything here is pure. Nothing in this package touches a catalog or a
// routing context, so parsing and filtering can be tested on their own.
package profile
