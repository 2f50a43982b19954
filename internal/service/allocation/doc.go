// Package allocation decides, for one planning run, which sender identity
// contacts which recipient through which campaign.
//
// The engine reads a snapshot once (campaigns, eligible recipients, active
// sender identities per account, suppressed and already-contacted pairs) and
// then runs a single-threaded, deterministic five-stage allocation:
//
//  1. index the snapshot (sender→campaigns by owning account, recipient slots)
//  2. per-campaign candidates: recipients sharing at least one category
//  3. per-sender candidates: union over reachable campaigns minus exclusions
//  4. per-sender quotas (equal or proportional share of the available slots)
//  5. greedy round-robin distribution over senders until no pass progresses
//
// The package depends only on the Source interface defined in repository.go;
// it never touches database/sql or net/http.
package allocation
