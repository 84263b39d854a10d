// Copyright 2026 KnowStack Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ai

import "errors"

var (
	// ErrInvalidMaxAttempts is returned when RetryWithBackoff is called
	// with a non-positive attempt count.
	ErrInvalidMaxAttempts = errors.New("max attempts must be greater than zero")

	// ErrEmptyHost is returned when a provider host URL is missing.
	ErrEmptyHost = errors.New("host URL cannot be empty")

	// ErrEmptyModel is returned when a model identifier is missing.
	ErrEmptyModel = errors.New("model identifier cannot be empty")

	// ErrEmptyInput is returned when an embedding call receives no texts.
	ErrEmptyInput = errors.New("no texts to embed")
)
