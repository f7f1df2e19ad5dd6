package sqlinline

const QSelectUserQuota = `--sql c23497bf-c2c1-4211-98c2-0a2881b606b3
select user_id, tier, daily_used, last_reset_day, monthly_used, last_monthly_reset_day,
       watermark, retention_days, free_expiry_day, device_tier, created_at, updated_at
from user_quotas
where user_id = $1::text
limit 1;
`

const QUpsertUserQuota = `--sql edbf76f8-8398-412f-9e1b-5a68eb632141
insert into user_quotas (user_id, tier, daily_used, last_reset_day, monthly_used, last_monthly_reset_day,
                         watermark, retention_days, free_expiry_day, device_tier, created_at, updated_at)
values ($1::text, $2::text, $3::int, $4::int, $5::int, $6::int, $7::boolean, $8::int, $9::int, $10::text, now(), now())
on conflict (user_id) do update set
    daily_used = excluded.daily_used,
    last_reset_day = excluded.last_reset_day,
    monthly_used = excluded.monthly_used,
    last_monthly_reset_day = excluded.last_monthly_reset_day,
    updated_at = now();
`

const QIncrementQuotaUsage = `--sql 55fecc5b-e0bb-465f-99b6-ba23de71f582
update user_quotas
set daily_used = daily_used + 1,
    monthly_used = monthly_used + 1,
    updated_at = now()
where user_id = $1::text;
`

const QResetQuotaUsage = `--sql 8b1f1c7a-93d4-4f43-9d6a-2f6f6f0a51be
update user_quotas
set daily_used = 0,
    monthly_used = 0,
    last_reset_day = $2::int,
    last_monthly_reset_day = $3::int,
    updated_at = now()
where user_id = $1::text
returning user_id, daily_used, monthly_used;
`

const QUpdateUserTier = `--sql 75585831-4f16-4153-9511-3b9daa83c953
update user_quotas
set tier = $2::text,
    watermark = $3::boolean,
    retention_days = $4::int,
    free_expiry_day = $5::int,
    updated_at = now()
where user_id = $1::text
returning user_id, tier, watermark, retention_days;
`
