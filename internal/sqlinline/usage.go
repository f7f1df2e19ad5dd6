package sqlinline

const QInsertUsageEvent = `--sql 63878470-12cf-4ae6-b39b-adc4f1255459
insert into usage_events(id, user_id, request_id, event_type, success, created_at, properties)
values (gen_random_uuid(), $1::text, $2::uuid, $3::text, $4::boolean, now(), coalesce($5::jsonb, '{}'::jsonb));
`
