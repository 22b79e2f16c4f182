// Moderation component for persistent flags on users and content, such as shadow bans.
package flagstore
