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


package jobs

import "errors"

var (
	// ErrNoHandler is returned when a claimed job has a type no handler
	// was registered for. The job fails terminally; retrying cannot fix
	// a missing handler.
	ErrNoHandler = errors.New("no handler registered for job type")

	// ErrAlreadyRunning is returned by Start when the orchestrator's
	// polling loop is already active.
	ErrAlreadyRunning = errors.New("orchestrator already running")
)
