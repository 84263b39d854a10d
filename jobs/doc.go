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


// Package jobs drives the durable background job state machine.
//
// Jobs move queued → running → done, or back to queued with exponential
// backoff (base * 2^(attempts-1), ±10% jitter) after a failed attempt, or
// to failed once attempts reach the maximum. Claiming is atomic: when
// several pollers race, storage-level conflict detection lets exactly one
// win. Running jobs whose worker disappears are reclaimed after a
// staleness window and re-enter the queue with their attempt already
// spent, so the attempt budget holds across crashes.
//
// The orchestrator knows nothing about what jobs do; handlers are
// registered per job type and terminal failures are reported through an
// optional hook.
package jobs
