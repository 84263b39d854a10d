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

import (
	"math/rand/v2"
	"time"
)

// jitterFraction bounds the random spread applied to retry delays so
// simultaneous failures don't retry in lockstep.
const jitterFraction = 0.1

// RetryDelay computes the delay before the given attempt is retried:
// base * 2^(attempt-1), with ±10% jitter. Attempt counts from 1.
func RetryDelay(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
	}

	jitter := time.Duration((rand.Float64()*2 - 1) * jitterFraction * float64(delay))
	return delay + jitter
}
