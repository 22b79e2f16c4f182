// Behavioral and adaptive signals layered over content analysis: per-user behavior patterns, near-duplicate content clustering, and self-tuning filter rules.
package behavior
