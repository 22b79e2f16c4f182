// Moderation component for counters: messages posted per author, reports made and received, automated actions taken per day.
//
// Counters are bucketed by period (hour, day, total). Includes an interface and implementations using redis and in-process memory.
package countstore
