// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package summary aggregates a poll's vote counts into a Report.

# Percentages

Each option's share is votes/total*100 rounded to one decimal. The margin
is the difference of the two rounded shares at the top of the ranking.

	votes [10, 5, 5] → 50.0 / 25.0 / 25.0, margin 25.0

# Levels

Participation is High above 20 votes, Medium above 10, otherwise Low.

Distribution uses the coefficient of variation (population standard
deviation over mean) of the counts:

	> 1.2  Highly skewed
	> 0.8  Moderately skewed
	> 0.4  Slightly skewed
	else   Evenly distributed

A poll with no votes reports "No votes" and has no insight lines.
*/
package summary
